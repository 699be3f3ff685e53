package ledger

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/javajoker/foodsecure-backend/internal/chain"
	"github.com/javajoker/foodsecure-backend/internal/models"
	"github.com/javajoker/foodsecure-backend/internal/utils"
)

func (l *Ledger) RegisterRole(ctx context.Context, from common.Address, reg chain.Registration) (*chain.Receipt, error) {
	return l.apply(ctx, "registerRole", from, nil, func(b *block) (uint64, error) {
		if !reg.Role.Valid() {
			return 0, fmt.Errorf("%w: unknown role %d", chain.ErrInvalidInput, reg.Role)
		}
		if strings.TrimSpace(reg.CompanyName) == "" {
			return 0, fmt.Errorf("%w: company name is required", chain.ErrInvalidInput)
		}
		if _, err := findUser(b.tx, from); err == nil {
			return 0, chain.ErrAlreadyRegistered
		} else if !errors.Is(err, chain.ErrNotRegistered) {
			return 0, err
		}

		return 0, b.tx.Create(&models.User{
			WalletAddress:   from.Hex(),
			Role:            reg.Role,
			Email:           strings.TrimSpace(reg.Email),
			PhysicalAddress: strings.TrimSpace(reg.PhysicalAddress),
			CompanyName:     strings.TrimSpace(reg.CompanyName),
			LicenseCID:      reg.LicenseCID,
			PhoneNumber:     strings.TrimSpace(reg.PhoneNumber),
			RegisteredAt:    b.at,
		}).Error
	})
}

func (l *Ledger) CreateProduct(ctx context.Context, from common.Address, p chain.NewProduct) (*chain.Receipt, error) {
	return l.apply(ctx, "createProduct", from, nil, func(b *block) (uint64, error) {
		creator, err := findUser(b.tx, from)
		if err != nil {
			return 0, err
		}
		if !creator.Role.CanCreateProducts() {
			return 0, fmt.Errorf("%w: only suppliers and manufacturers create products", chain.ErrUnauthorized)
		}

		name, barcode := strings.TrimSpace(p.Name), strings.TrimSpace(p.Barcode)
		if name == "" || barcode == "" {
			return 0, fmt.Errorf("%w: name and barcode are required", chain.ErrInvalidInput)
		}
		if len(p.ComponentProductIDs) != len(p.ComponentQuantities) {
			return 0, fmt.Errorf("%w: component ids and quantities differ in length", chain.ErrInvalidInput)
		}
		if p.Attributes.BatchQuantity == 0 {
			return 0, fmt.Errorf("%w: batch quantity must be positive", chain.ErrInvalidInput)
		}
		price := p.Attributes.UnitPrice
		if price == nil {
			price = new(big.Int)
		}
		if price.Sign() < 0 {
			return 0, fmt.Errorf("%w: negative unit price", chain.ErrInvalidInput)
		}

		product := &models.Product{
			Barcode:             barcode,
			Name:                name,
			Creator:             from.Hex(),
			Owner:               from.Hex(),
			ComponentProductIDs: models.Uint64List(append([]uint64{}, p.ComponentProductIDs...)),
			ComponentQuantities: models.Uint64List(append([]uint64{}, p.ComponentQuantities...)),
			PreviousLocations:   models.StringList{},
			PlaceOfOrigin:       p.Attributes.PlaceOfOrigin,
			ProductionDate:      p.Attributes.ProductionDate,
			ExpirationDate:      p.Attributes.ExpirationDate,
			UnitQuantity:        p.Attributes.UnitQuantity,
			UnitQuantityType:    p.Attributes.UnitQuantityType,
			BatchQuantity:       p.Attributes.BatchQuantity,
			UnitPrice:           price.String(),
			Category:            p.Attributes.Category,
			Variety:             p.Attributes.Variety,
			Misc:                p.Attributes.Misc,
			Location:            p.Attributes.PlaceOfOrigin,
			ArrivalDate:         b.at.Format(dateLayout),
			ShipmentStatus:      models.StatusNotShipped,
			AmountDue:           "0",
		}
		if err := b.tx.Create(product).Error; err != nil {
			return 0, err
		}

		for i, componentID := range p.ComponentProductIDs {
			if err := consumeComponent(b, from, product, componentID, p.ComponentQuantities[i]); err != nil {
				return 0, err
			}
		}

		details := fmt.Sprintf("%s (barcode %s) created by %s at %s", name, barcode, creator.CompanyName, product.Location)
		return product.ID, b.history(product.ID, EventProductCreated, details)
	})
}

func consumeComponent(b *block, from common.Address, product *models.Product, componentID, quantity uint64) error {
	component, err := findProduct(b.tx, componentID)
	if err != nil {
		return fmt.Errorf("component %d: %w", componentID, err)
	}
	if component.Owner != from.Hex() {
		return fmt.Errorf("component %d: %w", componentID, chain.ErrUnauthorized)
	}
	if !component.ShipmentStatus.AtRest() {
		return fmt.Errorf("component %d is in transit: %w", componentID, chain.ErrInvalidTransition)
	}
	if quantity == 0 {
		return fmt.Errorf("%w: component %d quantity must be positive", chain.ErrInvalidInput, componentID)
	}
	if component.BatchQuantity < quantity {
		return fmt.Errorf("component %d: %w", componentID, chain.ErrInsufficientStock)
	}

	component.BatchQuantity -= quantity
	if err := b.tx.Model(component).Update("batch_quantity", component.BatchQuantity).Error; err != nil {
		return err
	}

	details := fmt.Sprintf("%d units used to make product %d (%s)", quantity, product.ID, product.Name)
	return b.history(componentID, EventComponentConsumed, details)
}

func (l *Ledger) UpdateShipmentBySupplier(ctx context.Context, from common.Address, productID uint64, merchantName string, nextOwner, logisticPartner common.Address) (*chain.Receipt, error) {
	return l.apply(ctx, "updateShipmentBySupplier", from, nil, func(b *block) (uint64, error) {
		if _, err := findUser(b.tx, from); err != nil {
			return 0, err
		}
		product, err := findProduct(b.tx, productID)
		if err != nil {
			return 0, err
		}
		if product.Owner != from.Hex() {
			return 0, fmt.Errorf("%w: caller does not own product %d", chain.ErrUnauthorized, productID)
		}
		if !product.ShipmentStatus.AtRest() {
			return 0, fmt.Errorf("%w: product %d is %s", chain.ErrInvalidTransition, productID, product.ShipmentStatus.Label())
		}
		if product.BatchQuantity == 0 {
			return 0, fmt.Errorf("product %d: %w", productID, chain.ErrInsufficientStock)
		}

		if nextOwner == (common.Address{}) || nextOwner == from {
			return 0, fmt.Errorf("%w: next owner must be another participant", chain.ErrInvalidInput)
		}
		receiver, err := findUser(b.tx, nextOwner)
		if err != nil {
			return 0, fmt.Errorf("next owner: %w", err)
		}
		carrier, err := findUser(b.tx, logisticPartner)
		if err != nil {
			return 0, fmt.Errorf("logistic partner: %w", err)
		}
		if carrier.Role != models.RoleLogisticPartner {
			return 0, fmt.Errorf("%w: %s is not a logistic partner", chain.ErrInvalidInput, logisticPartner.Hex())
		}

		amountDue := new(big.Int).Mul(parseWei(product.UnitPrice), new(big.Int).SetUint64(product.BatchQuantity))
		merchantName = strings.TrimSpace(merchantName)
		if merchantName == "" {
			merchantName = receiver.CompanyName
		}

		err = b.tx.Model(product).Updates(map[string]interface{}{
			"shipment_status":  models.StatusReadyForShipment,
			"next_owner":       nextOwner.Hex(),
			"logistic_partner": logisticPartner.Hex(),
			"merchant_name":    merchantName,
			"payee":            from.Hex(),
			"amount_due":       amountDue.String(),
			"invoice_paid":     false,
		}).Error
		if err != nil {
			return 0, err
		}

		details := fmt.Sprintf("Ready for shipment to %s (%s) via %s, amount due %s wei",
			merchantName, nextOwner.Hex(), carrier.CompanyName, amountDue.String())
		return productID, b.history(productID, EventShipmentCreated, details)
	})
}

func (l *Ledger) UpdateShipmentStatus(ctx context.Context, from common.Address, productID uint64, status models.ShipmentStatus, location string) (*chain.Receipt, error) {
	return l.apply(ctx, "updateShipmentStatus", from, nil, func(b *block) (uint64, error) {
		product, err := findProduct(b.tx, productID)
		if err != nil {
			return 0, err
		}
		if product.LogisticPartner != from.Hex() {
			return 0, fmt.Errorf("%w: caller is not the logistic partner of product %d", chain.ErrUnauthorized, productID)
		}
		if !status.CarrierManaged() || status != product.ShipmentStatus+1 {
			return 0, fmt.Errorf("%w: %s -> %s", chain.ErrInvalidTransition, product.ShipmentStatus.Label(), status.Label())
		}

		updates := map[string]interface{}{"shipment_status": status}
		if location = strings.TrimSpace(location); location != "" {
			moveTo(product, location, b.at)
			updates["previous_locations"] = product.PreviousLocations
			updates["location"] = product.Location
			updates["arrival_date"] = product.ArrivalDate
		}
		if err := b.tx.Model(product).Updates(updates).Error; err != nil {
			return 0, err
		}

		details := "Status changed to " + status.Label()
		if location != "" {
			details += " at " + location
		}
		return productID, b.history(productID, EventStatusUpdated, details)
	})
}

func (l *Ledger) MarkParcelReceived(ctx context.Context, from common.Address, productID uint64, podCID string) (*chain.Receipt, error) {
	return l.apply(ctx, "markParcelReceived", from, nil, func(b *block) (uint64, error) {
		product, err := findProduct(b.tx, productID)
		if err != nil {
			return 0, err
		}
		if product.NextOwner != from.Hex() {
			return 0, fmt.Errorf("%w: caller is not the recipient of product %d", chain.ErrUnauthorized, productID)
		}
		if product.ShipmentStatus != models.StatusOutForDelivery {
			return 0, fmt.Errorf("%w: product %d is %s", chain.ErrInvalidTransition, productID, product.ShipmentStatus.Label())
		}
		receiver, err := findUser(b.tx, from)
		if err != nil {
			return 0, err
		}

		previousOwner := product.Owner
		destination := receiver.PhysicalAddress
		if destination == "" {
			destination = receiver.CompanyName
		}
		moveTo(product, destination, b.at)

		misc := product.Misc
		if podCID = strings.TrimSpace(podCID); podCID != "" {
			misc = utils.AppendMisc(misc, utils.MiscProofOfDelivery, podCID)
		}

		err = b.tx.Model(product).Updates(map[string]interface{}{
			"shipment_status":    models.StatusDelivered,
			"owner":              from.Hex(),
			"logistic_partner":   "",
			"previous_locations": product.PreviousLocations,
			"location":           product.Location,
			"arrival_date":       product.ArrivalDate,
			"misc":               misc,
		}).Error
		if err != nil {
			return 0, err
		}

		details := fmt.Sprintf("Received by %s from %s", receiver.CompanyName, previousOwner)
		if podCID != "" {
			details += ", proof of delivery " + podCID
		}
		return productID, b.history(productID, EventParcelReceived, details)
	})
}

func (l *Ledger) PayAmountDue(ctx context.Context, from common.Address, productID uint64, value *big.Int) (*chain.Receipt, error) {
	return l.apply(ctx, "payAmountDue", from, value, func(b *block) (uint64, error) {
		product, err := findProduct(b.tx, productID)
		if err != nil {
			return 0, err
		}
		if product.NextOwner != from.Hex() {
			return 0, fmt.Errorf("%w: caller is not invoiced for product %d", chain.ErrUnauthorized, productID)
		}
		if product.InvoicePaid {
			return 0, chain.ErrAlreadyPaid
		}
		due := parseWei(product.AmountDue)
		if due.Sign() <= 0 {
			return 0, chain.ErrNothingDue
		}
		if value == nil || value.Cmp(due) != 0 {
			return 0, fmt.Errorf("%w: expected %s wei", chain.ErrIncorrectPayment, due.String())
		}

		if err := b.tx.Model(product).Update("invoice_paid", true).Error; err != nil {
			return 0, err
		}
		err = b.tx.Create(&models.Payment{
			ProductID:   productID,
			Payer:       from.Hex(),
			Payee:       product.Payee,
			Amount:      due.String(),
			Timestamp:   b.at.Unix(),
			TxHash:      b.hash,
			BlockNumber: b.number,
		}).Error
		if err != nil {
			return 0, err
		}

		details := fmt.Sprintf("Invoice of %s wei paid by %s to %s", due.String(), from.Hex(), product.Payee)
		return productID, b.history(productID, EventInvoicePaid, details)
	})
}

func (l *Ledger) UpdateSoldOut(ctx context.Context, from common.Address, productID uint64, quantity uint64) (*chain.Receipt, error) {
	return l.apply(ctx, "updateSoldOut", from, nil, func(b *block) (uint64, error) {
		product, err := findProduct(b.tx, productID)
		if err != nil {
			return 0, err
		}
		if product.Owner != from.Hex() {
			return 0, fmt.Errorf("%w: caller does not own product %d", chain.ErrUnauthorized, productID)
		}
		if !product.ShipmentStatus.AtRest() {
			return 0, fmt.Errorf("%w: product %d is %s", chain.ErrInvalidTransition, productID, product.ShipmentStatus.Label())
		}
		if quantity == 0 {
			return 0, fmt.Errorf("%w: sold quantity must be positive", chain.ErrInvalidInput)
		}
		if quantity > product.BatchQuantity {
			return 0, chain.ErrInsufficientStock
		}

		remaining := product.BatchQuantity - quantity
		if err := b.tx.Model(product).Update("batch_quantity", remaining).Error; err != nil {
			return 0, err
		}

		details := fmt.Sprintf("%d units sold, %d remaining", quantity, remaining)
		return productID, b.history(productID, EventSoldOut, details)
	})
}

// moveTo pushes the current location into the history and records a new arrival.
func moveTo(product *models.Product, location string, at time.Time) {
	if product.Location != "" {
		product.PreviousLocations = append(product.PreviousLocations, product.Location)
	}
	product.Location = location
	product.ArrivalDate = at.Format(dateLayout)
}
