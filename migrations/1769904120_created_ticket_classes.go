package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		events, err := app.FindCollectionByNameOrId("events")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("ticket_classes")

		collection.Fields.Add(
			&core.RelationField{Name: "event", Required: true, MaxSelect: 1, CollectionId: events.Id},
			&core.TextField{Name: "name", Required: true},
			&core.TextField{Name: "unit_price", Required: true},
			&core.NumberField{Name: "total_quantity", Required: true, OnlyInt: true},
			// remaining_quantity is only ever written through the conditional
			// decrement / clamped release queries.
			&core.NumberField{Name: "remaining_quantity", OnlyInt: true},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_ticket_classes_event", false, "event", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("ticket_classes")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
