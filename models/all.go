package models

// All lists every model AutoMigrate has to know about.
func All() []interface{} {
	return []interface{}{
		&User{},
		&Table{},
		&Ingredient{},
		&MenuItem{},
		&MenuIngredient{},
		&Order{},
		&PaymentTransaction{},
		&PaymentReceipt{},
		&InventoryLog{},
		&Notification{},
		&Reservation{},
	}
}
