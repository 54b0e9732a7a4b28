package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		collection := core.NewBaseCollection("organizers")

		collection.Fields.Add(
			&core.TextField{Name: "name", Required: true},
			&core.EmailField{Name: "email", Required: true},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{
				"pending", "approved", "rejected", "suspended",
			}},
			// commission_rate is a decimal fraction in [0,1), stored as text
			// to avoid float drift.
			&core.TextField{Name: "commission_rate", Required: true},
			&core.TextField{Name: "merchant_ref"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_organizers_email", true, "email", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("organizers")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
