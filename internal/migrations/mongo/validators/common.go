package validators

import "go.mongodb.org/mongo-driver/bson"

var months = []string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

var nonNegativeNumber = bson.M{
	"bsonType": "number",
	"minimum":  0,
}
