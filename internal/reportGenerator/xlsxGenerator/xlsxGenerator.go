package xlsxGenerator

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/utils"
	"github.com/xuri/excelize/v2"
)

const timestampLayout = "2006-01-02 15:04:05"

type XLSXGenerator struct{}

func New() *XLSXGenerator {
	return &XLSXGenerator{}
}

func (g *XLSXGenerator) Generate(ctx context.Context, report model.WalletReport) (fileBytes []byte, fileExtension string, err error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	op := "XLSXGenerator.Generate"

	slog.Debug("Generate start", slog.String("rqID", rqID), slog.String("op", op), slog.String("walletID", report.Wallet.ID))

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			slog.Error("got error while closing file", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		}
	}()

	if err := g.fillPositionsSheet(f, report); err != nil {
		return nil, "", err
	}
	if err := g.fillHistorySheet(f, report); err != nil {
		return nil, "", err
	}
	if err := g.fillTaxSheet(f, report); err != nil {
		return nil, "", err
	}

	if err := f.DeleteSheet("Sheet1"); err != nil {
		slog.Error("got error while deleting Sheet1", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		slog.Error("got error while saving file to bytes buffer", slog.String("rqID", rqID), slog.String("op", op), slog.String("err", err.Error()))
		return nil, "", err
	}

	slog.Debug("Generate completed", slog.String("rqID", rqID), slog.String("op", op))

	return buf.Bytes(), ".xlsx", nil
}

func headerStyle(f *excelize.File, color string) (int, error) {
	return f.NewStyle(&excelize.Style{
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
		Font: &excelize.Font{
			Bold: true,
			Size: 11,
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Pattern: 1,
			Color:   []string{color},
		},
	})
}

func (g *XLSXGenerator) fillPositionsSheet(f *excelize.File, report model.WalletReport) error {
	sheetName := "Posições"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "H1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Portfólio - %s", report.Wallet.DisplayName))

	styleID, err := headerStyle(f, "#cfe2f3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "cripto")
	_ = f.SetCellStr(sheetName, "B2", "quantidade")
	_ = f.SetCellStr(sheetName, "C2", "custo restante")
	_ = f.SetCellStr(sheetName, "D2", "preço médio")
	_ = f.SetCellStr(sheetName, "E2", "lucro realizado")
	_ = f.SetCellStr(sheetName, "F2", "preço atual")
	_ = f.SetCellStr(sheetName, "G2", "valor de mercado")
	_ = f.SetCellStr(sheetName, "H2", "peso")

	for i, pos := range report.Summary.Positions {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), pos.AssetDisplayName)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("B%d", row), pos.HeldQty.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), pos.RemainingCostBasis.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), pos.AvgCost.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), pos.RealizedPL.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), pos.CurrentPrice.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), pos.MarketValue.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("H%d", row), pos.PositionWeight.InexactFloat64())
	}

	totalsRow := len(report.Summary.Positions) + 4
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", totalsRow), "TOTAL")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", totalsRow), report.Summary.TotalCostBasis.InexactFloat64())
	_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", totalsRow), report.Summary.TotalRealizedPL.InexactFloat64())
	_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", totalsRow), report.Summary.TotalMarketValue.InexactFloat64())

	return nil
}

func (g *XLSXGenerator) fillHistorySheet(f *excelize.File, report model.WalletReport) error {
	sheetName := "Histórico"
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "G1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", "Histórico de Operações")

	styleID, err := headerStyle(f, "#d9ead3")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "data")
	_ = f.SetCellStr(sheetName, "B2", "tipo")
	_ = f.SetCellStr(sheetName, "C2", "cripto")
	_ = f.SetCellStr(sheetName, "D2", "quantidade")
	_ = f.SetCellStr(sheetName, "E2", "valor total (BRL)")
	_ = f.SetCellStr(sheetName, "F2", "preço médio na operação")
	_ = f.SetCellStr(sheetName, "G2", "lucro realizado na operação")

	for i, operation := range report.Operations {
		row := i + 3
		_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", row), operation.Timestamp.Format(timestampLayout))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("B%d", row), string(operation.Kind))
		_ = f.SetCellStr(sheetName, fmt.Sprintf("C%d", row), operation.AssetSymbol)
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), operation.Quantity.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("E%d", row), operation.TotalConsideration.InexactFloat64())
		if operation.AvgCostAtOp.Valid {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("F%d", row), operation.AvgCostAtOp.Decimal.InexactFloat64())
		}
		if operation.RealizedPLAtOp.Valid {
			_ = f.SetCellValue(sheetName, fmt.Sprintf("G%d", row), operation.RealizedPLAtOp.Decimal.InexactFloat64())
		}
	}

	return nil
}

func (g *XLSXGenerator) fillTaxSheet(f *excelize.File, report model.WalletReport) error {
	sheetName := fmt.Sprintf("Imposto %d", report.Tax.Year)
	if _, err := f.NewSheet(sheetName); err != nil {
		return err
	}

	if err := f.MergeCell(sheetName, "A1", "D1"); err != nil {
		return err
	}
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("Resumo para Imposto de Renda %d", report.Tax.Year))

	styleID, err := headerStyle(f, "#f9cb9c")
	if err != nil {
		return err
	}
	if err := f.SetCellStyle(sheetName, "A1", "A1", styleID); err != nil {
		return err
	}

	_ = f.SetCellStr(sheetName, "A2", "mês")
	_ = f.SetCellStr(sheetName, "B2", "vendas")
	_ = f.SetCellStr(sheetName, "C2", "total vendido (BRL)")
	_ = f.SetCellStr(sheetName, "D2", "lucro/prejuízo realizado")

	for i, month := range report.Tax.Months {
		row := i + 3
		_ = f.SetCellInt(sheetName, fmt.Sprintf("A%d", row), int64(month.Month))
		_ = f.SetCellInt(sheetName, fmt.Sprintf("B%d", row), int64(month.SalesCount))
		_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", row), month.TotalProceeds.InexactFloat64())
		_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", row), month.RealizedPL.InexactFloat64())
	}

	totalsRow := len(report.Tax.Months) + 4
	_ = f.SetCellStr(sheetName, fmt.Sprintf("A%d", totalsRow), "TOTAL")
	_ = f.SetCellValue(sheetName, fmt.Sprintf("C%d", totalsRow), report.Tax.TotalProceeds.InexactFloat64())
	_ = f.SetCellValue(sheetName, fmt.Sprintf("D%d", totalsRow), report.Tax.RealizedPL.InexactFloat64())

	return nil
}
