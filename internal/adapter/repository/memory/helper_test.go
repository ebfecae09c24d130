package memory

import "github.com/iho/creditledger/internal/usecase"

func usecaseFilter(accountID string, before int64, limit int) usecase.TransactionFilter {
	return usecase.TransactionFilter{AccountID: accountID, BeforeSequence: before, Limit: limit}
}
