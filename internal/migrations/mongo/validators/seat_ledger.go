package validators

import "go.mongodb.org/mongo-driver/bson"

// SeatLedgerValidator enforces 0 <= reserved; the capacity ceiling is kept by
// the conditional update, not the schema.
var SeatLedgerValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "event_id", "month", "year", "capacity", "reserved"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":      bson.M{"bsonType": "string"},
			"event_id": bson.M{"bsonType": "string", "minLength": 24, "maxLength": 24},
			"month":    bson.M{"bsonType": "string", "enum": months},
			"year":     bson.M{"bsonType": []string{"int", "long"}, "minimum": 2000, "maximum": 2100},
			"capacity": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
			"reserved": bson.M{"bsonType": []string{"int", "long"}, "minimum": 0},
		},
	},
}
