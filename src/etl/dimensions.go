package etl

import (
	"fmt"

	"bitcoin-dss/src/helpers"
	"bitcoin-dss/src/interfaces"
	"bitcoin-dss/src/logger"
	"bitcoin-dss/src/models"
	"bitcoin-dss/src/utils"
)

// -----------------------------------------------------------------------------

// DimensionLoader normalizes heterogeneous source records into the three
// warehouse dimensions. The loaders are pure mappings with no dependency on
// each other and are safe to run concurrently.
type DimensionLoader struct {
	Reader    interfaces.ISourceReader
	Warehouse interfaces.IWarehouse
	Logger    *logger.Logger
}

// -----------------------------------------------------------------------------

func NewDimensionLoader(reader interfaces.ISourceReader, wh interfaces.IWarehouse, log *logger.Logger) *DimensionLoader {
	return &DimensionLoader{
		Reader:    reader,
		Warehouse: wh,
		Logger:    log,
	}
}

// -----------------------------------------------------------------------------

// MapTimeRecord reconciles one temporal source record into the DimTime shape.
// The source's decomposed fields (Year, Month, Day, Hour, Weekday) are copied
// as-is; everything else is derived from the parsed timestamp, which is the
// single source of truth for Date, Quarter, MonthName, Minute, Second,
// DayOfWeekNumber, IsWeekend and WeekOfYear.
func MapTimeRecord(rec models.MSourceTimeRecord) (models.MTimeDimension, error) {
	ts, ok := utils.ParseTimestamp(rec.Timestamp)
	if !ok {
		return models.MTimeDimension{}, fmt.Errorf("unparseable timestamp %q", rec.Timestamp)
	}

	return models.MTimeDimension{
		FullTimestamp:   ts,
		Date:            utils.DateString(ts),
		Year:            rec.Year,
		Quarter:         utils.Quarter(ts),
		Month:           rec.Month,
		MonthName:       utils.MonthName(ts),
		Day:             rec.Day,
		DayOfWeekNumber: utils.WeekdayNumber(ts),
		DayOfWeekName:   rec.Weekday,
		Hour:            rec.Hour,
		Minute:          ts.Minute(),
		Second:          ts.Second(),
		IsWeekend:       utils.IsWeekend(ts),
		WeekOfYear:      utils.WeekOfYear(ts),
	}, nil
}

// -----------------------------------------------------------------------------

func (l *DimensionLoader) LoadTime() error {
	recs, err := l.Reader.ReadTimeRecords()
	if err != nil {
		return helpers.NewDimensionLoadError("time", "source unreadable", err)
	}

	rows := make([]models.MTimeDimension, 0, len(recs))
	for i, rec := range recs {
		row, err := MapTimeRecord(rec)
		if err != nil {
			return helpers.NewDimensionLoadError("time", fmt.Sprintf("record %d", i), err)
		}
		rows = append(rows, row)
	}

	if err := l.Warehouse.InsertTimeDimension(rows); err != nil {
		return helpers.NewDimensionLoadError("time", "bulk insert failed", err)
	}

	l.Logger.Info("DimTime: %d records", len(rows))
	return nil
}

// -----------------------------------------------------------------------------

// MapMarketRecord is a one-to-one rename; the source date loses any
// time-of-day component.
func MapMarketRecord(rec models.MSourceMarketRecord) (models.MMarketDimension, error) {
	ts, ok := utils.ParseTimestamp(rec.Date)
	if !ok {
		return models.MMarketDimension{}, fmt.Errorf("unparseable date %q", rec.Date)
	}

	return models.MMarketDimension{
		MarketDate:   utils.DateString(ts),
		PriceOpen:    rec.PriceOpen,
		PriceClose:   rec.PriceClose,
		VolumeUSD:    rec.VolumeUSD,
		MarketCapUSD: rec.MarketCapUSD,
	}, nil
}

// -----------------------------------------------------------------------------

func (l *DimensionLoader) LoadMarket() error {
	recs, err := l.Reader.ReadMarketRecords()
	if err != nil {
		return helpers.NewDimensionLoadError("market", "source unreadable", err)
	}

	rows := make([]models.MMarketDimension, 0, len(recs))
	for i, rec := range recs {
		row, err := MapMarketRecord(rec)
		if err != nil {
			return helpers.NewDimensionLoadError("market", fmt.Sprintf("record %d", i), err)
		}
		rows = append(rows, row)
	}

	if err := l.Warehouse.InsertMarketDimension(rows); err != nil {
		return helpers.NewDimensionLoadError("market", "bulk insert failed", err)
	}

	l.Logger.Info("DimMarket: %d records", len(rows))
	return nil
}

// -----------------------------------------------------------------------------

// MapWalletRecord is a one-to-one rename. Seen-timestamps parse permissively:
// an unparseable value becomes NULL instead of failing the load.
func MapWalletRecord(rec models.MSourceWalletRecord) models.MWalletDimension {
	row := models.MWalletDimension{
		WalletAddress:        rec.WalletAddress,
		TransactionCount:     rec.TransactionCount,
		TotalReceivedSatoshi: rec.TotalReceivedSatoshi,
		TotalSentSatoshi:     rec.TotalSentSatoshi,
		FinalBalanceSatoshi:  rec.FinalBalanceSatoshi,
		LabelSource:          rec.LabelSource,
		EntityTag:            rec.EntityTag,
		EntityType:           rec.EntityType,
		IsReportedAbuse:      rec.IsReportedAbuse,
		AbuseCategory:        rec.AbuseCategory,
	}

	if ts, ok := utils.ParseTimestamp(rec.FirstSeenTimestamp); ok {
		row.FirstSeenTimestamp = &ts
	}
	if ts, ok := utils.ParseTimestamp(rec.LastSeenTimestamp); ok {
		row.LastSeenTimestamp = &ts
	}

	return row
}

// -----------------------------------------------------------------------------

func (l *DimensionLoader) LoadWallet() error {
	recs, err := l.Reader.ReadWalletRecords()
	if err != nil {
		return helpers.NewDimensionLoadError("wallet", "source unreadable", err)
	}

	rows := make([]models.MWalletDimension, 0, len(recs))
	for _, rec := range recs {
		rows = append(rows, MapWalletRecord(rec))
	}

	if err := l.Warehouse.InsertWalletDimension(rows); err != nil {
		return helpers.NewDimensionLoadError("wallet", "bulk insert failed", err)
	}

	l.Logger.Info("DimWallet: %d records", len(rows))
	return nil
}
