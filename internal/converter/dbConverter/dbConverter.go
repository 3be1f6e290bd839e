package dbConverter

import (
	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/internal/model/dbModel"
)

func ConvertUser(u dbModel.User) model.User {
	return model.User{
		ID:           u.ID,
		Name:         u.Name,
		Phone:        u.Phone,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
	}
}

func ConvertWallet(w dbModel.Wallet) model.Wallet {
	return model.Wallet{
		ID:          w.ID,
		OwnerID:     w.OwnerID,
		Kind:        model.WalletKind(w.Kind),
		DisplayName: w.DisplayName,
		IsForeign:   w.IsForeign,
		Info1:       w.Info1,
		Info2:       w.Info2,
	}
}

func ConvertOperation(o dbModel.Operation) model.Operation {
	return model.Operation{
		ID:                 o.ID,
		WalletID:           o.WalletID,
		OwnerID:            o.OwnerID,
		Kind:               model.OperationKind(o.Kind),
		AssetSymbol:        o.AssetSymbol,
		AssetDisplayName:   o.AssetDisplayName,
		AssetIcon:          o.AssetIcon,
		Quantity:           o.Quantity,
		TotalConsideration: o.TotalConsideration,
		Timestamp:          o.OperatedAt,
		AvgCostAtOp:        o.AvgCostAtOp,
		RealizedPLAtOp:     o.RealizedPLAtOp,
		FxRate:             o.FxRate,
	}
}

func ConvertBuyLot(l dbModel.BuyLot) model.BuyLot {
	return model.BuyLot{
		Quantity:           l.Quantity,
		TotalConsideration: l.TotalConsideration,
	}
}
