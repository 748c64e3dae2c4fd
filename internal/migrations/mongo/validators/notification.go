package validators

import "go.mongodb.org/mongo-driver/bson"

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"user_id",
			"title",
			"message",
			"category",
			"is_read",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"user_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"title": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 100,
			},

			"message": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 500,
			},

			"category": bson.M{
				"bsonType": "string",
				"enum":     []string{"appointment", "system", "reminder"},
			},

			"is_read": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
