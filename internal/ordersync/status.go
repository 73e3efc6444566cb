package ordersync

import "github.com/selleropsapp/sellerops-backend/pkg/enums"

// MapMeliStatus folds a Mercado Livre order status into the canonical set.
// Unknown upstream statuses fall open to pending so new marketplace states
// never drop orders from the operational flow.
func MapMeliStatus(mlStatus string) enums.OrderStatus {
	switch mlStatus {
	case "paid", "handling":
		return enums.OrderStatusPending
	case "ready_to_ship":
		return enums.OrderStatusReadyToShip
	case "shipped":
		return enums.OrderStatusShipped
	case "delivered":
		return enums.OrderStatusDelivered
	case "cancelled":
		return enums.OrderStatusCancelled
	default:
		return enums.OrderStatusPending
	}
}
