// cmd/server/main.go
package main

import (
	"context"
	"fmt"
	"math/big"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"github.com/javajoker/foodsecure-backend/internal/cache"
	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/config"
	"github.com/javajoker/foodsecure-backend/internal/database"
	"github.com/javajoker/foodsecure-backend/internal/events"
	"github.com/javajoker/foodsecure-backend/internal/i18n"
	"github.com/javajoker/foodsecure-backend/internal/ledger"
	"github.com/javajoker/foodsecure-backend/internal/router"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.Fatal("Failed to load configuration: ", err)
	}
	setupLogging(cfg.Log)

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.Fatal("Failed to initialize database: ", err)
	}
	defer database.Close(db)

	// Run database migrations
	if cfg.Database.AutoMigrate {
		if err := database.RunMigrations(db); err != nil {
			logrus.Fatal("Failed to run migrations: ", err)
		}
	}

	// Initialize i18n
	if err := i18n.Initialize(cfg.I18n.LocalesPath, cfg.I18n.DefaultLocale); err != nil {
		logrus.Fatal("Failed to initialize i18n: ", err)
	}

	utils.SetJWTSecret(cfg.JWT.SecretKey)

	backends, cleanup, err := buildBackends(cfg, db)
	if err != nil {
		logrus.Fatal("Failed to initialize backends: ", err)
	}
	defer cleanup()

	// Set Gin mode
	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize router
	r, err := router.Initialize(db, cfg, backends)
	if err != nil {
		logrus.Fatal("Failed to initialize router: ", err)
	}

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatal("Failed to start server: ", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Error("Server forced to shutdown: ", err)
	}

	logrus.Info("Server exited")
}

func setupLogging(cfg config.LogConfig) {
	if cfg.Format == "json" {
		logrus.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
}

// buildBackends picks the contract implementation and wraps it with the
// optional Redis cache and Kafka publisher. cleanup releases their connections.
func buildBackends(cfg *config.Config, db *gorm.DB) (router.Backends, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	chainID := big.NewInt(cfg.Blockchain.ChainID)
	contractAddr := common.HexToAddress(cfg.Blockchain.ContractAddress)

	var (
		contract chain.Contract
		relayer  chain.Relayer
		direct   bool // relayer writes bypass contract
	)

	if cfg.Blockchain.Offline() {
		logrus.Warn("BLOCKCHAIN_RPC_URL is not set, running against the local ledger")
		contract = ledger.New(db)
	} else {
		client, err := ethclient.Dial(cfg.Blockchain.RPC_URL)
		if err != nil {
			return router.Backends{}, cleanup, fmt.Errorf("failed to connect to %s: %w", cfg.Blockchain.Network, err)
		}
		closers = append(closers, client.Close)

		wallet, err := chain.NewKeyWallet(cfg.Blockchain.PrivateKeys, chainID)
		if err != nil {
			return router.Backends{}, cleanup, err
		}
		logrus.WithFields(logrus.Fields{
			"network":  cfg.Blockchain.Network,
			"contract": contractAddr.Hex(),
			"accounts": len(wallet.Accounts()),
		}).Info("Connected to Ethereum node")

		eth := chain.NewEthContract(contractAddr, client, wallet, time.Duration(cfg.Blockchain.TxTimeout)*time.Second).
			WithFromBlock(uint64(cfg.Blockchain.FromBlock))
		contract = eth
		relayer = chain.NewEthRelayer(eth, chainID)
		direct = true
	}

	backends := router.Backends{Publisher: events.NopPublisher{}}

	if cfg.Redis.Enabled() {
		rdb, err := cache.ConnectRedis(cfg.Redis)
		if err != nil {
			return router.Backends{}, cleanup, err
		}
		closers = append(closers, func() { rdb.Close() })

		cached := cache.NewCachedContract(contract, rdb, time.Duration(cfg.Redis.CacheTTL)*time.Second)
		contract = cached
		if direct {
			backends.Cache = cached
		}
		logrus.WithField("addr", cfg.Redis.Addr()).Info("Contract reads cached in Redis")
	}

	if relayer == nil {
		relayer = chain.NewCalldataRelayer(contract, chainID, contractAddr)
	}

	if cfg.Kafka.Enabled() {
		publisher := events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic, cfg.Kafka.Buffer)
		publisher.Start()
		closers = append(closers, publisher.Close)
		backends.Publisher = publisher
		logrus.WithField("topic", cfg.Kafka.Topic).Info("Publishing supply chain events to Kafka")
	}

	backends.Contract = contract
	backends.Relayer = relayer
	return backends, cleanup, nil
}
