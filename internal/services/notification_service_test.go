package services

import (
	"context"
	"math/big"
	"net/smtp"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/models"
)

type sentMail struct {
	addr string
	from string
	to   []string
	msg  string
}

func newTestNotifier(contract chain.Reader, smtpHost string) (*NotificationService, *[]sentMail) {
	cfg := testConfig()
	cfg.Email.SMTPHost = smtpHost
	cfg.Email.SMTPPort = "2525"
	cfg.Email.FromEmail = "noreply@foodsecure.example"
	cfg.Email.FromName = "FoodSecure"

	var sent []sentMail
	svc := NewNotificationService(contract, cfg)
	svc.send = func(addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		sent = append(sent, sentMail{addr: addr, from: from, to: to, msg: string(msg)})
		return nil
	}
	return svc, &sent
}

func TestSendShipmentDispatched(t *testing.T) {
	contract := new(mockContract)
	ctx := context.Background()
	contract.On("GetUser", ctx, distributorAddr).Return(&chain.User{
		Address: distributorAddr, Role: models.RoleDistributionCenter,
		CompanyName: "Central DC", Email: "dc@example.com", Registered: true,
	}, nil)
	contract.On("GetUser", ctx, supplierAddr).Return(&chain.User{
		Address: supplierAddr, Role: models.RoleSupplier,
		CompanyName: "Green Farms", Registered: true,
	}, nil)

	svc, sent := newTestNotifier(contract, "smtp.example.com")
	require.True(t, svc.Enabled())

	err := svc.SendShipmentDispatched(ctx, &chain.Product{
		ID:        3,
		Name:      "Tomatoes",
		Owner:     supplierAddr,
		NextOwner: distributorAddr,
		AmountDue: new(big.Int).Mul(big.NewInt(15), big.NewInt(1e17)),
	})
	require.NoError(t, err)

	require.Len(t, *sent, 1)
	mail := (*sent)[0]
	assert.Equal(t, "smtp.example.com:2525", mail.addr)
	assert.Equal(t, []string{"dc@example.com"}, mail.to)
	assert.Contains(t, mail.msg, "Subject: Shipment on its way - Tomatoes")
	assert.Contains(t, mail.msg, "Green Farms has dispatched product #3")
	assert.Contains(t, mail.msg, "Amount due: 1.5 ETH")
}

func TestSendInvoicePaid(t *testing.T) {
	contract := new(mockContract)
	ctx := context.Background()
	contract.On("GetUser", ctx, supplierAddr).Return(&chain.User{
		Address: supplierAddr, CompanyName: "Green Farms", Email: "farm@example.com", Registered: true,
	}, nil)

	svc, sent := newTestNotifier(contract, "smtp.example.com")
	err := svc.SendInvoicePaid(ctx, &chain.Product{ID: 3, Name: "Tomatoes"}, chain.Payment{
		ProductID: 3,
		Payer:     distributorAddr,
		Payee:     supplierAddr,
		Amount:    big.NewInt(1e18),
		TxHash:    common.HexToHash("0x01"),
	})
	require.NoError(t, err)
	require.Len(t, *sent, 1)
	assert.Contains(t, (*sent)[0].msg, "Amount: 1 ETH from "+distributorAddr.Hex())
}

func TestNotificationsSkippedWithoutSMTP(t *testing.T) {
	contract := new(mockContract)
	ctx := context.Background()
	contract.On("GetUser", ctx, supplierAddr).Return(&chain.User{
		Address: supplierAddr, CompanyName: "Green Farms", Email: "farm@example.com", Registered: true,
	}, nil)

	svc, sent := newTestNotifier(contract, "")
	assert.False(t, svc.Enabled())

	err := svc.SendInvoicePaid(ctx, &chain.Product{ID: 3}, chain.Payment{Payee: supplierAddr, Amount: big.NewInt(1)})
	require.NoError(t, err)
	assert.Empty(t, *sent)
}
