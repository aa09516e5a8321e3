package runner

import (
	"fmt"
	"macroscrape/internal/config"
	"macroscrape/internal/record"
	"macroscrape/internal/sources"
	"macroscrape/internal/sources/fred"
	"macroscrape/internal/sources/hdx"
	"macroscrape/internal/sources/imf"
	"macroscrape/internal/sources/nbs"
	"macroscrape/internal/sources/tourism"
	"macroscrape/internal/sources/tradingeconomics"
	"macroscrape/internal/sources/vietnambiz"
	"macroscrape/internal/sources/worldbank"
	"macroscrape/internal/sources/yahoo"
	"slices"
)

// Factory builds a source from the shared deps.
type Factory func(deps sources.Deps) (sources.Source, error)

func factory[S sources.Source](fn func(deps sources.Deps) (S, error)) Factory {
	return func(deps sources.Deps) (sources.Source, error) {
		return fn(deps)
	}
}

// Entry is one runnable source of the catalog.
type Entry struct {
	Name    string
	Summary string
	New     Factory
	// Part marks sources that a bundle already runs, `run --all` skips them.
	Part bool
}

const ChinaMacro = "china_macro"

func newChinaMacro(deps sources.Deps) (sources.Source, error) {
	wb, err := worldbank.New(deps)
	if err != nil {
		return nil, err
	}
	pmi, err := nbs.New(deps)
	if err != nil {
		return nil, err
	}
	return sources.NewBundle(sources.Description{
		Name:  ChinaMacro,
		Title: "China Macro Economic Indicators",
		Order: record.ByDateDesc,
	}, wb, pmi), nil
}

func fredCSV(bundle fred.Bundle, summary string) Entry {
	return Entry{Name: bundle.Name, Summary: summary, New: factory(fred.NewCSV(bundle))}
}

var Catalog = []Entry{
	{
		Name:    ChinaMacro,
		Summary: "World Bank GDP and investment growth with NBS manufacturing PMI",
		New:     newChinaMacro,
	},
	{
		Name:    worldbank.Name,
		Summary: "World Bank GDP and investment growth for China",
		New:     factory(worldbank.New),
		Part:    true,
	},
	{
		Name:    nbs.Name,
		Summary: "NBS China manufacturing PMI from press releases",
		New:     factory(nbs.New),
		Part:    true,
	},
	{
		Name:    imf.GDP.Name,
		Summary: "IMF WEO real GDP growth and nominal GDP",
		New:     factory(imf.New(imf.GDP)),
	},
	{
		Name:    imf.Inflation.Name,
		Summary: "IMF WEO inflation for world aggregates",
		New:     factory(imf.New(imf.Inflation)),
	},
	fredCSV(fred.CommodityPrices, "FRED commodity prices (energy, metals, agriculture)"),
	fredCSV(fred.FedPolicy, "FRED effective fed funds rate and target range"),
	fredCSV(fred.DXYIndex, "FRED trade weighted dollar indices"),
	fredCSV(fred.USMacro, "FRED fed funds, 10y yield and broad dollar index"),
	fredCSV(fred.CommodityCycles, "IMF global price index of all commodities via FRED"),
	{
		Name:    fred.APIName,
		Summary: "FRED API Vietnam series over the last year",
		New:     factory(fred.NewAPI),
	},
	{
		Name:    fred.CategoryName,
		Summary: "Latest value of every series in the FRED Vietnam category",
		New:     factory(fred.NewCategory),
	},
	{
		Name:    hdx.Name,
		Summary: "WFP prices, inflation and exchange rates via HDX",
		New:     factory(hdx.New),
	},
	{
		Name:    tourism.Name,
		Summary: "International visitor arrivals to Vietnam (browser)",
		New:     factory(tourism.New),
	},
	{
		Name:    vietnambiz.Name,
		Summary: "VietnamBiz macro table, latest and previous period (browser)",
		New:     factory(vietnambiz.New),
	},
	{
		Name:    tradingeconomics.Name,
		Summary: "Trading Economics Vietnam indicators by category",
		New:     factory(tradingeconomics.New),
	},
	{
		Name:    yahoo.Commodities.Name,
		Summary: "Yahoo Finance daily closes for commodity futures and producers",
		New:     factory(yahoo.New(yahoo.Commodities)),
	},
	{
		Name:    yahoo.Market.Name,
		Summary: "Yahoo Finance latest session for commodity futures",
		New:     factory(yahoo.New(yahoo.Market)),
	},
}

// Lookup finds a catalog entry by name.
func Lookup(catalog []Entry, name string) (Entry, error) {
	idx := slices.IndexFunc(catalog, func(e Entry) bool { return e.Name == name })
	if idx < 0 {
		return Entry{}, fmt.Errorf("%w: %s", sources.ErrUnknownSource, name)
	}
	return catalog[idx], nil
}

// Enabled lists the names `run --all` runs: every entry that is not part of a
// bundle and not disabled in the config.
func Enabled(catalog []Entry, cfg config.Config) []string {
	var names []string
	for _, e := range catalog {
		if e.Part || cfg.Source(e.Name).Disabled {
			continue
		}
		names = append(names, e.Name)
	}
	return names
}
