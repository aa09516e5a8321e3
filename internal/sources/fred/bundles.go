package fred

import "macroscrape/internal/record"

type Series struct {
	ID       string
	Name     string
	Category string
	Unit     string
	Note     string
}

// Bundle is a named group of graph CSV series written to one file.
type Bundle struct {
	Name      string
	Title     string
	Series    []Series
	Precision int
	Order     record.Order
}

var CommodityPrices = Bundle{
	Name:  "commodity_prices",
	Title: "Commodity prices (monthly, FRED)",
	Series: []Series{
		{ID: "DCOILWTICO", Name: "Crude Oil - WTI", Category: "Energy", Unit: "USD per Barrel"},
		{ID: "DCOILBRENTEU", Name: "Crude Oil - Brent", Category: "Energy", Unit: "USD per Barrel"},
		{ID: "PNGASEUUSDM", Name: "Natural Gas - Europe", Category: "Energy", Unit: "USD per Million BTU"},
		{ID: "PCOPPUSDM", Name: "Copper", Category: "Metals", Unit: "USD per Metric Ton"},
		{ID: "WPU101", Name: "Steel - Iron and Steel (PPI)", Category: "Metals", Unit: "Index (PPI)"},
		{ID: "PWHEAMTUSDM", Name: "Wheat", Category: "Agriculture", Unit: "USD per Metric Ton"},
		{ID: "PMAIZMTUSDM", Name: "Maize (Corn)", Category: "Agriculture", Unit: "USD per Metric Ton"},
		{ID: "PSOYBUSDQ", Name: "Soybeans", Category: "Agriculture", Unit: "USD per Metric Ton"},
		{ID: "PCOFFOTMUSDM", Name: "Coffee", Category: "Agriculture", Unit: "USD per Kilogram"},
		{ID: "PSUGAISAUSDM", Name: "Sugar", Category: "Agriculture", Unit: "USD per Kilogram"},
		{ID: "PRICENPUSDM", Name: "Rice", Category: "Agriculture", Unit: "USD per Metric Ton"},
		{ID: "PCU325311325311P", Name: "Fertilizer - Nitrogenous (Primary Products)", Category: "Fertilizer", Unit: "Index (PPI)"},
	},
	Precision: 4,
	Order:     record.ByCategoryIndicatorDate,
}

var FedPolicy = Bundle{
	Name:  "fed_policy",
	Title: "Federal Reserve policy rates",
	Series: []Series{
		{
			ID:       "DFF",
			Name:     "Effective Federal Funds Rate",
			Category: "Interest Rate",
			Unit:     "Percent",
			Note:     "The interest rate at which depository institutions lend reserve balances to other depository institutions overnight",
		},
		{
			ID:       "DFEDTARU",
			Name:     "Federal Funds Target Range - Upper Limit",
			Category: "Policy Rate",
			Unit:     "Percent",
			Note:     "Upper limit of the target range for the federal funds rate",
		},
		{
			ID:       "DFEDTARL",
			Name:     "Federal Funds Target Range - Lower Limit",
			Category: "Policy Rate",
			Unit:     "Percent",
			Note:     "Lower limit of the target range for the federal funds rate",
		},
	},
	Precision: 4,
	Order:     record.ByCategoryIndicatorDate,
}

var DXYIndex = Bundle{
	Name:  "dxy_index",
	Title: "Trade weighted U.S. dollar indices",
	Series: []Series{
		{
			ID:       "DTWEXBGS",
			Name:     "Trade Weighted U.S. Dollar Index: Broad, Goods and Services",
			Category: "Broad Index",
			Unit:     "Index 2006=100",
		},
		{
			ID:       "DTWEXEMEGS",
			Name:     "Trade Weighted U.S. Dollar Index: Emerging Market Economies",
			Category: "Emerging Markets",
			Unit:     "Index 2006=100",
		},
		{
			ID:       "DTWEXAFEGS",
			Name:     "Trade Weighted U.S. Dollar Index: Advanced Foreign Economies, Goods and Services",
			Category: "Major Currencies",
			Unit:     "Index 2006=100",
		},
	},
	Precision: 4,
	Order:     record.ByCategoryIndicatorDate,
}

var USMacro = Bundle{
	Name:  "us_macro",
	Title: "US macro indicators",
	Series: []Series{
		{ID: "FEDFUNDS", Name: "fed_funds_rate", Unit: "percent"},
		{ID: "DGS10", Name: "us_10y_yield", Unit: "percent"},
		{ID: "DTWEXBGS", Name: "dxy", Unit: "index"},
	},
	Precision: 4,
	Order:     record.ByIndicatorDate,
}

var CommodityCycles = Bundle{
	Name:  "commodity_cycles",
	Title: "IMF global commodity price index",
	Series: []Series{
		{
			ID:       "PALLFNFINDEXM",
			Name:     "Global Price Index of All Commodities",
			Category: "Commodity Index",
			Unit:     "Index 2016=100",
			Note:     "IMF Global Price Index of All Commodities, Monthly. Base Year 2016 = 100.",
		},
	},
	Precision: 4,
	Order:     record.ByIndicatorDate,
}
