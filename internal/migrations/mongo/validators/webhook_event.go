package validators

import "go.mongodb.org/mongo-driver/bson"

var WebhookEventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"_id", "type", "received_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id":         bson.M{"bsonType": "string", "minLength": 1},
			"type":        bson.M{"bsonType": "string"},
			"received_at": bson.M{"bsonType": "date"},
		},
	},
}
