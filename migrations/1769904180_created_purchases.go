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
		classes, err := app.FindCollectionByNameOrId("ticket_classes")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("purchases")

		collection.Fields.Add(
			&core.RelationField{Name: "event", Required: true, MaxSelect: 1, CollectionId: events.Id},
			&core.RelationField{Name: "ticket_class", Required: true, MaxSelect: 1, CollectionId: classes.Id},
			&core.NumberField{Name: "quantity", Required: true, OnlyInt: true},
			&core.TextField{Name: "gross_amount", Required: true},
			&core.TextField{Name: "buyer_name", Required: true},
			&core.EmailField{Name: "buyer_email", Required: true},
			&core.TextField{Name: "buyer_phone", Required: true},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{
				"pending", "paid", "cancelled", "refunded",
			}},
			&core.TextField{Name: "qr_code"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		collection.AddIndex("idx_purchases_email", false, "buyer_email", "")
		collection.AddIndex("idx_purchases_event_status", false, "event, status", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("purchases")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
