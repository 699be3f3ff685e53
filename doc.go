/*
Package foodsecure is the backend of the FoodSecure supply chain tracker.

Participants sign in with their Ethereum wallet, register a role on the
SupplyChain contract and move batches of food from supplier to retail
store. Every write lands on the contract, or on the local ledger when no
RPC node is configured, and is mirrored to Kafka when brokers are set.

	foodsecure-backend/
	├── cmd/server/          HTTP server entry point
	├── internal/
	│   ├── config/          environment configuration
	│   ├── models/          roles, shipment stages, ledger tables
	│   ├── database/        gorm connection and migrations
	│   ├── chain/           contract interface, go-ethereum binding, relayer
	│   ├── ledger/          database backed contract for offline runs
	│   ├── cache/           Redis read-through contract cache
	│   ├── events/          Kafka event publisher
	│   ├── services/        participant, product, shipment, payment logic
	│   ├── handlers/        gin handlers
	│   ├── middleware/      auth, i18n, audit log, rate limiting, CORS
	│   ├── i18n/            translations
	│   ├── utils/           JWT, validation, pagination, responses
	│   └── router/          route table
	└── go.mod
*/
package foodsecure
