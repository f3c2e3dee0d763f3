package sandbox

// ComputeMeter tracks compute unit consumption for one transaction.
// It is not safe for concurrent use; submissions are strictly sequential.
type ComputeMeter struct {
	remaining uint64
	limit     uint64
}

// NewComputeMeter creates a meter with the given budget.
func NewComputeMeter(limit uint64) *ComputeMeter {
	return &ComputeMeter{
		remaining: limit,
		limit:     limit,
	}
}

// Consume attempts to consume compute units. On exhaustion the meter
// pins to zero and every later call keeps failing.
func (m *ComputeMeter) Consume(cost uint64) error {
	if m.remaining < cost {
		m.remaining = 0
		return ErrComputeExceeded
	}
	m.remaining -= cost
	return nil
}

// Remaining returns the units left in the budget.
func (m *ComputeMeter) Remaining() uint64 {
	return m.remaining
}

// Limit returns the total budget.
func (m *ComputeMeter) Limit() uint64 {
	return m.limit
}

// Consumed returns the units spent so far.
func (m *ComputeMeter) Consumed() uint64 {
	return m.limit - m.remaining
}
