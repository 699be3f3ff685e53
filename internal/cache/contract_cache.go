// Package cache puts a Redis read-through layer in front of contract reads.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/models"
)

const (
	notFoundMarker = "notfound"
	notFoundTTL    = time.Minute
	keyPrefix      = "foodsecure:"
	pendingPrefix  = keyPrefix + "pending:"

	// pendingTTL bounds a write that never reports back, e.g. a crashed process.
	pendingTTL = 2 * time.Minute
	// settleTTL caps entries filled while a write is in flight or just landed,
	// since the loaded value may predate the write.
	settleTTL = 5 * time.Second
)

// CachedContract caches participant and product lookups. Lists, history and
// payments always go to the contract because they change with every block.
type CachedContract struct {
	chain.Contract
	redis *redis.Client
	ttl   time.Duration
}

var _ chain.Contract = (*CachedContract)(nil)

func NewCachedContract(contract chain.Contract, rdb *redis.Client, ttl time.Duration) *CachedContract {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &CachedContract{Contract: contract, redis: rdb, ttl: ttl}
}

func userKey(account common.Address) string {
	return keyPrefix + "user:" + strings.ToLower(account.Hex())
}

func productKey(productID uint64) string {
	return fmt.Sprintf("%sproduct:%d", keyPrefix, productID)
}

func pendingKey(key string) string {
	return pendingPrefix + strings.TrimPrefix(key, keyPrefix)
}

// fillTTL is how long a freshly loaded value for key may be cached.
func (c *CachedContract) fillTTL(ctx context.Context, key string, ttl time.Duration) time.Duration {
	n, err := c.redis.Exists(ctx, pendingKey(key)).Result()
	if err == nil && n > 0 && ttl > settleTTL {
		return settleTTL
	}
	return ttl
}

// readThrough serves key from Redis or loads it and stores the result.
// notFound is cached briefly so repeated lookups of unknown keys skip the chain.
func readThrough[T any](ctx context.Context, c *CachedContract, key string, notFound error, load func() (*T, error)) (*T, error) {
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, notFound
		}
		var value T
		if err := json.Unmarshal(data, &value); err == nil {
			return &value, nil
		}
		logrus.WithError(err).WithField("key", key).Warn("Failed to decode cached value, reloading")
	case errors.Is(err, redis.Nil):
	default:
		logrus.WithError(err).WithField("key", key).Warn("Redis error, reading from contract")
	}

	value, err := load()
	if err != nil {
		if errors.Is(err, notFound) {
			if setErr := c.redis.Set(ctx, key, notFoundMarker, c.fillTTL(ctx, key, notFoundTTL)).Err(); setErr != nil {
				logrus.WithError(setErr).Warn("Failed to cache not-found marker")
			}
		}
		return nil, err
	}

	encoded, err := json.Marshal(value)
	if err != nil {
		logrus.WithError(err).Warn("Failed to encode value for cache")
		return value, nil
	}
	if err := c.redis.Set(ctx, key, encoded, c.fillTTL(ctx, key, c.ttl)).Err(); err != nil {
		logrus.WithError(err).WithField("key", key).Warn("Failed to cache value")
	}
	return value, nil
}

// beginWrite drops keys and flags them as pending so that readers racing the
// write only cache what they load for settleTTL.
func (c *CachedContract) beginWrite(ctx context.Context, keys ...string) {
	c.mark(ctx, pendingTTL, keys...)
}

// endWrite drops keys again and lets the pending flags lapse after settleTTL,
// covering readers that loaded before the write landed and store afterwards.
func (c *CachedContract) endWrite(ctx context.Context, keys ...string) {
	c.mark(ctx, settleTTL, keys...)
}

func (c *CachedContract) mark(ctx context.Context, flagTTL time.Duration, keys ...string) {
	if len(keys) == 0 {
		return
	}
	_, err := c.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range keys {
			pipe.Set(ctx, pendingKey(key), "1", flagTTL)
		}
		pipe.Del(ctx, keys...)
		return nil
	})
	if err != nil {
		logrus.WithError(err).WithField("keys", keys).Warn("Failed to invalidate cache")
	}
}

// write runs fn between beginWrite and endWrite for keys.
func (c *CachedContract) write(ctx context.Context, keys []string, fn func() (*chain.Receipt, error)) (*chain.Receipt, error) {
	c.beginWrite(ctx, keys...)
	defer c.endWrite(ctx, keys...)
	return fn()
}

func (c *CachedContract) GetUser(ctx context.Context, account common.Address) (*chain.User, error) {
	return readThrough(ctx, c, userKey(account), chain.ErrNotRegistered, func() (*chain.User, error) {
		return c.Contract.GetUser(ctx, account)
	})
}

func (c *CachedContract) GetUserRole(ctx context.Context, account common.Address) (models.Role, error) {
	user, err := c.GetUser(ctx, account)
	if err != nil {
		return 0, err
	}
	return user.Role, nil
}

func (c *CachedContract) GetProduct(ctx context.Context, productID uint64) (*chain.Product, error) {
	return readThrough(ctx, c, productKey(productID), chain.ErrProductNotFound, func() (*chain.Product, error) {
		return c.Contract.GetProduct(ctx, productID)
	})
}

func (c *CachedContract) RegisterRole(ctx context.Context, from common.Address, reg chain.Registration) (*chain.Receipt, error) {
	return c.write(ctx, []string{userKey(from)}, func() (*chain.Receipt, error) {
		return c.Contract.RegisterRole(ctx, from, reg)
	})
}

func (c *CachedContract) CreateProduct(ctx context.Context, from common.Address, p chain.NewProduct) (*chain.Receipt, error) {
	keys := make([]string, 0, len(p.ComponentProductIDs))
	for _, id := range p.ComponentProductIDs {
		keys = append(keys, productKey(id))
	}
	receipt, err := c.write(ctx, keys, func() (*chain.Receipt, error) {
		return c.Contract.CreateProduct(ctx, from, p)
	})
	if receipt != nil {
		// Clears a not-found marker left by an earlier lookup.
		c.endWrite(ctx, productKey(receipt.ProductID))
	}
	return receipt, err
}

func (c *CachedContract) UpdateShipmentBySupplier(ctx context.Context, from common.Address, productID uint64, merchantName string, nextOwner, logisticPartner common.Address) (*chain.Receipt, error) {
	return c.write(ctx, []string{productKey(productID)}, func() (*chain.Receipt, error) {
		return c.Contract.UpdateShipmentBySupplier(ctx, from, productID, merchantName, nextOwner, logisticPartner)
	})
}

func (c *CachedContract) UpdateShipmentStatus(ctx context.Context, from common.Address, productID uint64, status models.ShipmentStatus, location string) (*chain.Receipt, error) {
	return c.write(ctx, []string{productKey(productID)}, func() (*chain.Receipt, error) {
		return c.Contract.UpdateShipmentStatus(ctx, from, productID, status, location)
	})
}

func (c *CachedContract) MarkParcelReceived(ctx context.Context, from common.Address, productID uint64, podCID string) (*chain.Receipt, error) {
	return c.write(ctx, []string{productKey(productID)}, func() (*chain.Receipt, error) {
		return c.Contract.MarkParcelReceived(ctx, from, productID, podCID)
	})
}

func (c *CachedContract) PayAmountDue(ctx context.Context, from common.Address, productID uint64, value *big.Int) (*chain.Receipt, error) {
	return c.write(ctx, []string{productKey(productID)}, func() (*chain.Receipt, error) {
		return c.Contract.PayAmountDue(ctx, from, productID, value)
	})
}

func (c *CachedContract) UpdateSoldOut(ctx context.Context, from common.Address, productID uint64, quantity uint64) (*chain.Receipt, error) {
	return c.write(ctx, []string{productKey(productID)}, func() (*chain.Receipt, error) {
		return c.Contract.UpdateSoldOut(ctx, from, productID, quantity)
	})
}

// Forget drops cached entries touched by a write that bypassed this decorator,
// such as a relayed raw transaction.
func (c *CachedContract) Forget(ctx context.Context, account common.Address, productID uint64) {
	keys := []string{userKey(account)}
	if productID != 0 {
		keys = append(keys, productKey(productID))
	}
	c.endWrite(ctx, keys...)
}
