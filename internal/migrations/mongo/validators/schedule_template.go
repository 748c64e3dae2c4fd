package validators

import "go.mongodb.org/mongo-driver/bson"

var ScheduleTemplateValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"doctor_id",
			"day_of_week",
			"start_time",
			"end_time",
			"slot_duration_minutes",
			"is_active",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "objectId",
			},

			"doctor_id": bson.M{
				"bsonType":  "string",
				"minLength": 24,
				"maxLength": 24,
			},

			"day_of_week": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  7,
			},

			"start_time": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"end_time": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"slot_duration_minutes": bson.M{
				"bsonType": "int",
				"minimum":  5,
				"maximum":  480,
			},

			"break_start": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"break_end": bson.M{
				"bsonType": "string",
				"pattern":  "^([01][0-9]|2[0-3]):[0-5][0-9]$",
			},

			"max_patients": bson.M{
				"bsonType": "int",
				"minimum":  0,
				"maximum":  200,
			},

			"is_active": bson.M{
				"bsonType": "bool",
			},

			"created_at": bson.M{
				"bsonType": "date",
			},

			"updated_at": bson.M{
				"bsonType": "date",
			},
		},
	},
}
