package purchase

import "steam-microtxn/internal/common/validation"

// Field contracts shared across operations. The messages are part of the
// public API surface and must stay stable.
var (
	steamIDField = validation.Field{
		Name: "steamId", Type: validation.TypeString, Required: true, MaxLength: 64,
		RequiredMessage: "SteamID is required", TooLongMessage: "SteamID too long",
	}
	appIDField = validation.Field{
		Name: "appId", Type: validation.TypeString, Required: true, MaxLength: 64,
		RequiredMessage: "AppID is required", TooLongMessage: "AppID too long",
	}
	orderIDField = validation.Field{
		Name: "orderId", Type: validation.TypeString, Required: true, MaxLength: 64,
		RequiredMessage: "Order ID is required", TooLongMessage: "Order ID too long",
	}
	transIDField = validation.Field{
		Name: "transId", Type: validation.TypeString, Required: true, MaxLength: 64,
		RequiredMessage: "Transaction ID is required", TooLongMessage: "Transaction ID too long",
	}
	itemIDField = validation.Field{
		Name: "itemId", Type: validation.TypeNumber, Required: true, Positive: true,
		RequiredMessage: "Item ID must be positive", PositiveMessage: "Item ID must be positive",
	}
	// Category and description may be sent by older clients; they are
	// shape-checked but the forwarded values always come from the catalog.
	categoryField = validation.Field{
		Name: "category", Type: validation.TypeString, MaxLength: 64,
		TooLongMessage: "Category too long",
	}
	itemDescField = validation.Field{
		Name: "itemDescription", Type: validation.TypeString, MaxLength: 1024,
		TooLongMessage: "Description too long",
	}

	contentTypeHeader = validation.Field{
		Name: "Content-Type", Literal: "application/json",
	}
	appTicketHeader = validation.Field{
		Name: "x-steam-app-ticket", Type: validation.TypeString, Required: true,
		RequiredMessage: "App ticket is required",
	}
)

func baseHeaders() []validation.Field {
	return []validation.Field{contentTypeHeader}
}

func ticketHeaders() []validation.Field {
	return []validation.Field{contentTypeHeader, appTicketHeader}
}

// Request schemas, one per operation. Every schema runs before any
// business logic or outbound call.
var (
	GetReliableUserInfoSchema = validation.RequestSchema{
		Headers: baseHeaders(),
		Body:    []validation.Field{steamIDField},
	}

	CheckAppOwnershipSchema = validation.RequestSchema{
		Headers: baseHeaders(),
		Body:    []validation.Field{steamIDField, appIDField},
	}

	InitPurchaseSchema = validation.RequestSchema{
		Headers: baseHeaders(),
		Body:    []validation.Field{appIDField, itemIDField, itemDescField, categoryField, steamIDField},
	}

	InitPurchaseAppTicketSchema = validation.RequestSchema{
		Headers: ticketHeaders(),
		Body:    InitPurchaseSchema.Body,
	}

	FinalizePurchaseSchema = validation.RequestSchema{
		Headers: baseHeaders(),
		Body:    []validation.Field{appIDField, orderIDField},
	}

	FinalizePurchaseAppTicketSchema = validation.RequestSchema{
		Headers: ticketHeaders(),
		Body:    FinalizePurchaseSchema.Body,
	}

	CheckPurchaseStatusSchema = validation.RequestSchema{
		Headers: baseHeaders(),
		Body:    []validation.Field{appIDField, orderIDField, transIDField},
	}
)
