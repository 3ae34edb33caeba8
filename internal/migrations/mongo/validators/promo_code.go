package validators

import "go.mongodb.org/mongo-driver/bson"

var PromoCodeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"code", "type", "value", "usage_count", "valid_from", "valid_until", "is_active"},
		"additionalProperties": true,

		"properties": bson.M{
			"code": bson.M{
				"bsonType": "string",
				"pattern":  "^[A-Z0-9]{3,30}$",
			},

			"type": bson.M{
				"bsonType": "string",
				"enum":     []string{"PERCENTAGE", "FIXED_AMOUNT"},
			},

			"value": bson.M{
				"bsonType":         "number",
				"exclusiveMinimum": 0,
			},

			"usage_count": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  0,
			},

			"usage_limit": bson.M{
				"bsonType": []string{"int", "long", "null"},
			},

			"valid_from":  bson.M{"bsonType": "date"},
			"valid_until": bson.M{"bsonType": "date"},
			"is_active":   bson.M{"bsonType": "bool"},
		},
	},
}

var PromoCodeUsageValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"promo_code_id", "code", "user_id", "booking_id", "used_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"code":            bson.M{"bsonType": "string"},
			"user_id":         bson.M{"bsonType": "string"},
			"booking_id":      bson.M{"bsonType": "string"},
			"discount_amount": nonNegativeNumber,
			"used_at":         bson.M{"bsonType": "date"},
		},
	},
}
