package coingeckoApi

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/criptofacil/criptofacil/config"
	"github.com/criptofacil/criptofacil/internal/model"
	"github.com/criptofacil/criptofacil/internal/model/coingeckoModel"
	"github.com/criptofacil/criptofacil/utils"
	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
	"golang.org/x/time/rate"
)

type CoingeckoApi struct {
	client  *resty.Client
	limiter *rate.Limiter
	cfg     *config.Config
}

func New(cfg *config.Config) *CoingeckoApi {
	client := resty.New().
		SetDebug(cfg.API.Debug).
		SetTimeout(cfg.API.Timeout).
		SetBaseURL(cfg.API.CoingeckoApi.Url)
	// the public CoinGecko tier throttles hard, so requests are paced client-side
	limiter := rate.NewLimiter(rate.Limit(cfg.API.CoingeckoApi.RequestsPerSec), 1)
	return &CoingeckoApi{client: client, limiter: limiter, cfg: cfg}
}

// GetMarkets pulls the top coins by market cap, page by page, and returns
// them as catalog entries. Symbols are uppercased and deduplicated keeping
// the highest-ranked coin for each symbol.
func (a *CoingeckoApi) GetMarkets(ctx context.Context) ([]model.CryptoInfo, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)
	slog.Debug("start CoingeckoApi.GetMarkets request", slog.String("rqID", rqID))

	res := make([]model.CryptoInfo, 0, a.cfg.API.CoingeckoApi.PerPage*a.cfg.API.CoingeckoApi.MaxPages)
	seen := make(map[string]struct{})

	for page := 1; page <= a.cfg.API.CoingeckoApi.MaxPages; page++ {
		rawMarkets, err := a.getMarketsPage(ctx, page)
		if err != nil {
			return nil, err
		}

		for _, raw := range rawMarkets {
			symbol := strings.ToUpper(raw.Symbol)
			if symbol == "" {
				continue
			}
			if _, ok := seen[symbol]; ok {
				continue
			}
			seen[symbol] = struct{}{}

			price := decimal.Zero
			if raw.CurrentPrice != nil {
				price = decimal.NewFromFloat(*raw.CurrentPrice)
			}

			res = append(res, model.CryptoInfo{
				Symbol:          symbol,
				Name:            raw.Name,
				Image:           raw.Image,
				DisplayName:     fmt.Sprintf("%s - %s", symbol, raw.Name),
				CurrentPriceBRL: price,
			})
		}

		// short page means we ran past the last coin
		if len(rawMarkets) < a.cfg.API.CoingeckoApi.PerPage {
			break
		}
	}

	slog.Debug("CoingeckoApi.GetMarkets request complete", slog.String("rqID", rqID), slog.Int("count", len(res)))

	return res, nil
}

func (a *CoingeckoApi) getMarketsPage(ctx context.Context, page int) ([]coingeckoModel.RawMarket, error) {
	rqID := utils.GetRequestIDFromCtx(ctx)

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	params := map[string]string{
		"vs_currency": a.cfg.API.CoingeckoApi.VsCurrency,
		"order":       "market_cap_desc",
		"per_page":    strconv.Itoa(a.cfg.API.CoingeckoApi.PerPage),
		"page":        strconv.Itoa(page),
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetHeader("Accept", "application/json").
		SetQueryParams(params).
		Get("/coins/markets")

	if err != nil {
		slog.Error("error while dialing CoingeckoApi", slog.String("err", err.Error()), slog.String("rqID", rqID), slog.Int("page", page))
		return nil, err
	}

	if resp.IsError() {
		slog.Error("CoingeckoApi returned error status", slog.Int("status", resp.StatusCode()), slog.String("rqID", rqID), slog.Int("page", page))
		return nil, fmt.Errorf("coingecko api status %d", resp.StatusCode())
	}

	rawMarkets := make([]coingeckoModel.RawMarket, 0, a.cfg.API.CoingeckoApi.PerPage)
	err = json.Unmarshal(resp.Body(), &rawMarkets)
	if err != nil {
		slog.Error("can't unmarshall response into coingeckoModel.RawMarket slice", slog.String("err", err.Error()), slog.String("rqID", rqID))
		return nil, err
	}

	return rawMarkets, nil
}
