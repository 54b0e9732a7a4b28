package migrations

import (
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
)

func init() {
	m.Register(func(app core.App) error {
		purchases, err := app.FindCollectionByNameOrId("purchases")
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection("payments")

		collection.Fields.Add(
			&core.RelationField{Name: "purchase", Required: true, MaxSelect: 1, CollectionId: purchases.Id},
			&core.TextField{Name: "amount", Required: true},
			&core.SelectField{Name: "status", Required: true, MaxSelect: 1, Values: []string{
				"initiated", "completed", "failed",
			}},
			&core.TextField{Name: "reference", Required: true},
			&core.TextField{Name: "tracking_id"},
			&core.TextField{Name: "platform_share"},
			&core.TextField{Name: "organizer_share"},
			&core.TextField{Name: "failure_reason"},
			&core.DateField{Name: "completed_at"},
			&core.AutodateField{Name: "created", OnCreate: true},
			&core.AutodateField{Name: "updated", OnCreate: true, OnUpdate: true},
		)

		// Idempotent reconciliation replays key on the merchant reference.
		collection.AddIndex("idx_payments_reference", true, "reference", "")
		collection.AddIndex("idx_payments_purchase", true, "purchase", "")

		return app.Save(collection)
	}, func(app core.App) error {
		collection, err := app.FindCollectionByNameOrId("payments")
		if err != nil {
			return err
		}
		return app.Delete(collection)
	})
}
