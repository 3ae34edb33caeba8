package validators

import "go.mongodb.org/mongo-driver/bson"

var EventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"title", "category", "price", "is_active", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 3,
				"maxLength": 150,
			},

			"category": bson.M{
				"bsonType":  "string",
				"minLength": 2,
				"maxLength": 50,
			},

			"price": bson.M{
				"bsonType":         "number",
				"exclusiveMinimum": 0,
			},

			"max_participants": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"available_dates": bson.M{
				"bsonType": "array",
				"maxItems": 60,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"month", "year", "days"},
					"properties": bson.M{
						"month": bson.M{"bsonType": "string", "enum": months},
						"year":  bson.M{"bsonType": []string{"int", "long"}, "minimum": 2000, "maximum": 2100},
						"days": bson.M{
							"bsonType": "array",
							"minItems": 1,
							"items":    bson.M{"bsonType": []string{"int", "long"}, "minimum": 1, "maximum": 31},
						},
					},
				},
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
