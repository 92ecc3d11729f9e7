package service

import "github.com/xiaot623/ensemble/internal/domain"

// accumulator holds the responses of one request in invocation order.
// Each invocation sees exactly the responses added before it.
type accumulator struct {
	responses    []domain.AgentResponse
	participants []string
}

func (a *accumulator) add(resp domain.AgentResponse) {
	a.responses = append(a.responses, resp)
	a.participants = domain.MergeAgentIDs(a.participants, []string{resp.AgentID})
}

// prior returns a copy of the responses so far.
func (a *accumulator) prior() []domain.AgentResponse {
	out := make([]domain.AgentResponse, len(a.responses))
	copy(out, a.responses)
	return out
}

func (a *accumulator) totalMs() int64 {
	var total int64
	for _, r := range a.responses {
		total += r.ProcessingTimeMs
	}
	return total
}
