package notifier

import "github.com/selleropsapp/sellerops-backend/pkg/enums"

// MapBlingStatus translates a canonical order status into the Bling
// "situacao" vocabulary.
func MapBlingStatus(status enums.OrderStatus) string {
	switch status {
	case enums.OrderStatusReadyToShip:
		return "Em andamento"
	case enums.OrderStatusShipped:
		return "Atendido"
	default:
		return "Em aberto"
	}
}
