package topics

const (
	// Bets
	BetPlaced  = "bet_placed"
	BetSettled = "bet_settled"

	// Resultados
	ResultDeclared = "result_declared"

	// DLQs
	ResultDeclaredDLQ = "result_declared_dlq"

	// Redis pub/sub
	BookUpdates = "book_updates"
)
