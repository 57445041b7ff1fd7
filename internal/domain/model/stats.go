package model

// TicketStats are the dashboard counters.
type TicketStats struct {
	Total      int `json:"total"`
	Open       int `json:"open"`
	InProgress int `json:"inProgress"`
	Closed     int `json:"closed"`
}

// CountTickets tallies tickets by status. Unknown statuses count toward Total only.
func CountTickets(tickets []Ticket) TicketStats {
	stats := TicketStats{Total: len(tickets)}
	for _, t := range tickets {
		switch t.Status {
		case TicketStatusOpen:
			stats.Open++
		case TicketStatusInProgress:
			stats.InProgress++
		case TicketStatusClosed:
			stats.Closed++
		}
	}
	return stats
}
