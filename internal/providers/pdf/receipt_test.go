package pdf

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateReceipt(t *testing.T) {
	doc, err := New().GenerateReceipt(context.Background(), ReceiptData{
		CompanyName:      "Gulf Glass & Aluminium",
		ReceiptNumber:    "RCP-000042",
		IssuedAt:         "2026-03-01",
		InvoiceNumber:    "INV-2026-00007",
		PaymentMethod:    "Bank Transfer",
		CustomerName:     "Fatima",
		Currency:         "AED",
		Amount:           "250.00",
		InvoiceTotal:     "1000.00",
		PreviousBalance:  "500.00",
		RemainingBalance: "250.00",
		FooterNote:       "Thank you",
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")))
}

func TestGenerateReceiptHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := New().GenerateReceipt(ctx, ReceiptData{})
	assert.ErrorIs(t, err, context.Canceled)
}
