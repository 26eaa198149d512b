package order

// ApplyOrderStatus returns orders with the order identified by id moved to
// status. The input slice is never modified. When id is not in orders the
// same slice is returned together with false.
func ApplyOrderStatus(orders []Order, id string, status OrderStatus) ([]Order, bool) {
	i := indexOf(orders, func(o Order) bool { return o.ID == id })
	if i < 0 {
		return orders, false
	}

	out := make([]Order, len(orders))
	copy(out, orders)
	out[i].OrderStatus = status
	return out, true
}

// ApplyPaymentStatus is ApplyOrderStatus for the nested payment status.
func ApplyPaymentStatus(orders []Order, id string, status PaymentStatus) ([]Order, bool) {
	i := indexOf(orders, func(o Order) bool { return o.ID == id })
	if i < 0 {
		return orders, false
	}

	out := make([]Order, len(orders))
	copy(out, orders)
	out[i].Payment.PaymentStatus = status
	return out, true
}

// ApplyPaymentStatusByPidx matches on the payment session id instead of the
// order id.
func ApplyPaymentStatusByPidx(orders []Order, pidx string, status PaymentStatus) ([]Order, string, bool) {
	if pidx == "" {
		return orders, "", false
	}

	i := indexOf(orders, func(o Order) bool { return o.Payment.Pidx == pidx })
	if i < 0 {
		return orders, "", false
	}

	out := make([]Order, len(orders))
	copy(out, orders)
	out[i].Payment.PaymentStatus = status
	return out, out[i].ID, true
}

func indexOf(orders []Order, match func(Order) bool) int {
	for i := range orders {
		if match(orders[i]) {
			return i
		}
	}
	return -1
}
