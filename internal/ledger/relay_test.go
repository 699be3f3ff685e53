package ledger

import (
	"crypto/ecdsa"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/models"
)

var (
	relayChainID  = big.NewInt(11155111)
	relayContract = common.HexToAddress("0x59b670e9fA9D0A427751Af201D676719a970857b")
)

func (s *LedgerTestSuite) signTx(key *ecdsa.PrivateKey, nonce uint64, method string, params ...interface{}) (string, common.Hash) {
	data, err := chain.SupplyChainABI.Pack(method, params...)
	s.Require().NoError(err)

	tx, err := types.SignTx(types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &relayContract,
		Gas:      300000,
		GasPrice: big.NewInt(1),
		Data:     data,
	}), types.LatestSignerForChainID(relayChainID), key)
	s.Require().NoError(err)

	raw, err := tx.MarshalBinary()
	s.Require().NoError(err)
	return hexutil.Encode(raw), tx.Hash()
}

func (s *LedgerTestSuite) TestRelayedTransactionsCannotBeReplayed() {
	key, err := crypto.GenerateKey()
	s.Require().NoError(err)
	owner := crypto.PubkeyToAddress(key.PublicKey)
	relayer := chain.NewCalldataRelayer(s.ledger, relayChainID, relayContract)

	// Direct writes carry no nonce and do not advance the sequence.
	_, err = s.ledger.RegisterRole(s.ctx, owner, chain.Registration{Role: models.RoleSupplier, CompanyName: "Hill Farm", PhysicalAddress: "9 Hill Rd"})
	s.Require().NoError(err)
	created, err := s.ledger.CreateProduct(s.ctx, owner, chain.NewProduct{
		Barcode:    "7001",
		Name:       "Onions",
		Attributes: chain.Attributes{BatchQuantity: 10, UnitPrice: big.NewInt(10)},
	})
	s.Require().NoError(err)
	id := new(big.Int).SetUint64(created.ProductID)

	raw, hash := s.signTx(key, 0, "updateSoldOut", id, big.NewInt(3))
	result, err := relayer.Relay(s.ctx, raw)
	s.Require().NoError(err)
	s.Equal(hash, result.TxHash)
	s.Equal(owner, result.From)

	_, err = relayer.Relay(s.ctx, raw)
	s.ErrorIs(err, chain.ErrInvalidInput)

	p, err := s.ledger.GetProduct(s.ctx, created.ProductID)
	s.Require().NoError(err)
	s.Equal(uint64(7), p.Attributes.BatchQuantity)

	// A skipped nonce is refused.
	gap, _ := s.signTx(key, 2, "updateSoldOut", id, big.NewInt(1))
	_, err = relayer.Relay(s.ctx, gap)
	s.ErrorIs(err, chain.ErrInvalidInput)

	// A reverted transaction still uses up its nonce.
	tooMany, revertedHash := s.signTx(key, 1, "updateSoldOut", id, big.NewInt(50))
	_, err = relayer.Relay(s.ctx, tooMany)
	s.ErrorIs(err, chain.ErrInsufficientStock)
	record, err := s.ledger.Transaction(s.ctx, revertedHash)
	s.Require().NoError(err)
	s.Equal(models.LedgerTxStatusReverted, record.Status)
	s.Require().NotNil(record.Nonce)
	s.Equal(uint64(1), *record.Nonce)

	_, err = relayer.Relay(s.ctx, gap)
	s.Require().NoError(err)

	p, err = s.ledger.GetProduct(s.ctx, created.ProductID)
	s.Require().NoError(err)
	s.Equal(uint64(6), p.Attributes.BatchQuantity)
}
