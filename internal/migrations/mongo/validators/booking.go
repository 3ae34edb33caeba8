package validators

import "go.mongodb.org/mongo-driver/bson"

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"booking_id",
			"user_id",
			"event_id",
			"selected_date",
			"selected_month",
			"selected_year",
			"participants",
			"total_amount",
			"final_amount",
			"status",
			"payment_info",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"booking_id": bson.M{
				"bsonType":  "string",
				"pattern":   "^TRV[0-9A-Z]+$",
				"minLength": 8,
				"maxLength": 32,
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
			},

			"event_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"selected_date": bson.M{
				"bsonType": "date",
			},

			"selected_day": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
				"maximum":  31,
			},

			"selected_month": bson.M{
				"bsonType": "string",
				"enum":     months,
			},

			"selected_year": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  2000,
				"maximum":  2100,
			},

			"participants": bson.M{
				"bsonType": "array",
				"minItems": 1,
				"maxItems": 50,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"name", "email", "phone", "emergency_contact"},
					"properties": bson.M{
						"name":  bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
						"email": bson.M{"bsonType": "string"},
						"phone": bson.M{"bsonType": "string", "pattern": `^\+[1-9][0-9]{6,14}$`},
						"emergency_contact": bson.M{
							"bsonType": "object",
							"required": []string{"name", "phone", "relation"},
						},
					},
				},
			},

			"total_amount":    nonNegativeNumber,
			"discount_amount": nonNegativeNumber,
			"final_amount":    nonNegativeNumber,

			"status": bson.M{
				"bsonType": "string",
				"enum": []string{
					"PENDING",
					"CONFIRMED",
					"CANCELLED",
					"COMPLETED",
					"REFUNDED",
				},
			},

			"payment_info": bson.M{
				"bsonType": "object",
				"required": []string{"payment_status"},
				"properties": bson.M{
					"payment_status": bson.M{
						"bsonType": "string",
						"enum":     []string{"PENDING", "SUCCESS", "FAILED", "REFUNDED"},
					},
					"currency": bson.M{
						"bsonType":  "string",
						"minLength": 3,
						"maxLength": 3,
					},
					"order_ids": bson.M{
						"bsonType": "array",
						"items":    bson.M{"bsonType": "string"},
					},
				},
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
