package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		organizers, err := app.FindCollectionByNameOrId("organizers")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("events")

		collection.Fields.Add(
			&core.RelationField{Name: "organizer", Required: true, MaxSelect: 1, CollectionId: organizers.Id},
			&core.TextField{Name: "event_name", Required: true},
			&core.TextField{Name: "description"},
			&core.TextField{Name: "venue"},
			// date-only ISO string; start/end times are "HH:MM".
			&core.TextField{Name: "event_date", Required: true},
			&core.TextField{Name: "start_time"},
			&core.TextField{Name: "end_time"},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{
				"pending", "approved", "rejected", "completed", "cancelled",
			}},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_events_status_date", false, "status, event_date", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
