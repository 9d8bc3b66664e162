package entity

import "time"

var ownerName = []Lookup{{Name: "user_name", Via: "user_id", Table: "users", Column: "name"}}

func ownerField() Field {
	return Field{Name: "user_id", Kind: KindInt, Required: true, Filterable: true}
}

var (
	Hotel = &Schema{
		Name:  "hotel",
		Table: "hotels",
		Fields: []Field{
			{Name: "hotel", Kind: KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "location", Kind: KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "rating", Kind: KindInt, Required: true, Rules: "stars"},
		},
		NaturalKey: []string{"hotel"},
	}

	Budgeting = &Schema{
		Name:  "budgeting",
		Table: "budgeting",
		Fields: []Field{
			{Name: "expense", Kind: KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "cost", Kind: KindFloat, Required: true, Rules: "gte=0"},
			{Name: "category", Kind: KindString, Required: true, Rules: "min=1,max=255", Filterable: true},
			ownerField(),
		},
		OwnerField: "user_id",
		NaturalKey: []string{"expense", "user_id"},
		Lookups:    ownerName,
	}

	Flight = &Schema{
		Name:  "flight",
		Table: "flights",
		Fields: []Field{
			{Name: "departure_iata", Kind: KindString, Required: true, Rules: "iata", Filterable: true},
			{Name: "arrival_iata", Kind: KindString, Required: true, Rules: "iata", Filterable: true},
		},
		NaturalKey: []string{"departure_iata", "arrival_iata"},
	}

	Waypoint = &Schema{
		Name:  "waypoint",
		Table: "waypoints",
		Fields: []Field{
			{Name: "injury", Kind: KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "location", Kind: KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "notes", Kind: KindJSON, Default: func() any { return map[string]any{} }},
		},
		NaturalKey: []string{"injury"},
	}

	WaypointUser = &Schema{
		Name:  "waypoint_user",
		Table: "waypoints_user",
		Fields: []Field{
			{Name: "injury", Kind: KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "location", Kind: KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "address", Kind: KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "rating", Kind: KindInt, Required: true, Rules: "stars"},
			ownerField(),
		},
		OwnerField: "user_id",
		NaturalKey: []string{"injury", "user_id"},
		Lookups:    ownerName,
	}

	PackingItem = &Schema{
		Name:  "packing_item",
		Table: "packing_checklists",
		Fields: []Field{
			{Name: "item", Kind: KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "user", Kind: KindString, Default: ""},
		},
		NaturalKey: []string{"item"},
	}

	Rate = &Schema{
		Name:  "rate",
		Table: "rates",
		Fields: []Field{
			{Name: "value", Kind: KindInt, Required: true, Rules: "stars"},
			{Name: "post_id", Kind: KindInt, Required: true, Rules: "gt=0", Filterable: true},
			ownerField(),
		},
		OwnerField: "user_id",
		NaturalKey: []string{"user_id", "post_id"},
		Unique:     [][]string{{"user_id", "post_id"}},
		Lookups:    ownerName,
	}

	BudgetReview = &Schema{
		Name:  "budget_review",
		Table: "budget_reviews",
		Fields: []Field{
			{Name: "title", Kind: KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "comment", Kind: KindString, Required: true},
			{Name: "rating", Kind: KindInt, Required: true, Rules: "stars"},
			{Name: "hashtag", Kind: KindString},
			{Name: "date", Kind: KindTime, Default: func() any { return time.Now().UTC() }},
			{Name: "channel_id", Kind: KindInt, Required: true, Filterable: true},
			ownerField(),
		},
		OwnerField: "user_id",
		NaturalKey: []string{"title", "user_id"},
		Lookups:    ownerName,
	}

	FoodReview = &Schema{
		Name:  "food_review",
		Table: "food_reviews",
		Fields: []Field{
			{Name: "food", Kind: KindString, Required: true, Rules: "min=1,max=255"},
			{Name: "review", Kind: KindString, Required: true},
			{Name: "rating", Kind: KindInt, Required: true, Rules: "stars"},
		},
		NaturalKey: []string{"food"},
	}

	ChatLog = &Schema{
		Name:  "chat_log",
		Table: "chat_logs",
		Fields: []Field{
			{Name: "question", Kind: KindString, Required: true},
			{Name: "response", Kind: KindString, Default: ""},
		},
		NaturalKey: []string{"question"},
	}
)

// Resources lists every schema-driven resource in backup and route order.
func Resources() []*Schema {
	return []*Schema{Hotel, Budgeting, Flight, Waypoint, WaypointUser, PackingItem, Rate, BudgetReview, FoodReview, ChatLog}
}
