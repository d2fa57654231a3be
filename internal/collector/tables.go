package collector

// ColumnKind controls how the writer coerces a cell before persisting it.
type ColumnKind int

// Column kinds understood by the writer and the table stores.
const (
	KindText ColumnKind = iota
	KindInt
	KindFloat
	KindBool
	KindDate
	KindTimestamp
)

// Column describes one column in a destination table.
type Column struct {
	Name string
	Kind ColumnKind
}

// WriteMode selects snapshot (replace) or history (append) semantics.
type WriteMode string

// Write modes.
const (
	ModeReplace WriteMode = "replace"
	ModeAppend  WriteMode = "append"
)

// Table is a named destination with a fixed schema and write mode.
type Table struct {
	Name    string
	Columns []Column
	Mode    WriteMode
}

// Header returns the column names in order.
func (t Table) Header() []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = c.Name
	}
	return out
}

// Destination table names.
const (
	TableBrandTrends        = "brand_trends"
	TableVintageBrandTrends = "vintage_brand_trends"
	TableColorTrends        = "color_trends"
	TableStyleTrends        = "style_trends"
	TableTextureTrends      = "texture_trends"
	TableCombinationTrends  = "combination_trends"
	TablePriceData          = "price_data"
	TablePinterestData      = "pinterest_data"
	TableErrorLog           = "error_log"
)

var (
	interestColumns = []Column{
		{Name: "date", Kind: KindDate},
		{Name: "keyword", Kind: KindText},
		{Name: "interest", Kind: KindInt},
	}
	priceColumns = []Column{
		{Name: "query", Kind: KindText},
		{Name: "title", Kind: KindText},
		{Name: "price", Kind: KindFloat},
		{Name: "date_scraped", Kind: KindTimestamp},
	}
	signalColumns = []Column{
		{Name: "query", Kind: KindText},
		{Name: "presence", Kind: KindBool},
		{Name: "date", Kind: KindDate},
	}
	errorColumns = []Column{
		{Name: "timestamp", Kind: KindTimestamp},
		{Name: "source", Kind: KindText},
		{Name: "message", Kind: KindText},
	}
)

var tables = []Table{
	{Name: TableBrandTrends, Columns: interestColumns, Mode: ModeReplace},
	{Name: TableVintageBrandTrends, Columns: interestColumns, Mode: ModeReplace},
	{Name: TableColorTrends, Columns: interestColumns, Mode: ModeReplace},
	{Name: TableStyleTrends, Columns: interestColumns, Mode: ModeReplace},
	{Name: TableTextureTrends, Columns: interestColumns, Mode: ModeReplace},
	{Name: TableCombinationTrends, Columns: interestColumns, Mode: ModeReplace},
	{Name: TablePriceData, Columns: priceColumns, Mode: ModeAppend},
	{Name: TablePinterestData, Columns: signalColumns, Mode: ModeReplace},
	{Name: TableErrorLog, Columns: errorColumns, Mode: ModeAppend},
}

// Tables returns every known destination table.
func Tables() []Table {
	out := make([]Table, len(tables))
	copy(out, tables)
	return out
}

// LookupTable finds a destination table by name.
func LookupTable(name string) (Table, bool) {
	for _, t := range tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}
