package idgen

import (
	"fmt"
	"math/rand"
	"sync"
	"time"
)

// Business identifier formats:
//
//	tx_no      TXN + YYMMDD + zero-padded daily sequence (4)
//	receipt_no RCPT + YYMM + 4 random digits
//	ticket_no  TICKET- + YYMMDD + 4 random digits
//
// The daily sequence is advisory; the caller relies on a unique index and
// retries with a bumped sequence on collision.

var (
	mu  sync.Mutex
	rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// NewTxNo builds a transaction number from the local calendar day and the
// number of transactions already created that day.
func NewTxNo(date time.Time, dailySeq int) string {
	return fmt.Sprintf("TXN%s%04d", date.Format("060102"), dailySeq+1)
}

// NewReceiptNo builds a receipt number with a random 4-digit suffix.
func NewReceiptNo(now time.Time) string {
	return fmt.Sprintf("RCPT%s%04d", now.Format("0601"), randomDigits())
}

// NewTicketNo builds a support ticket number with a random 4-digit suffix.
func NewTicketNo(now time.Time) string {
	return fmt.Sprintf("TICKET-%s%04d", now.Format("060102"), randomDigits())
}

func randomDigits() int {
	mu.Lock()
	defer mu.Unlock()
	return rnd.Intn(10000)
}
