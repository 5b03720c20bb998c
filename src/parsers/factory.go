package parsers

import (
	"fmt"

	"github.com/username/capfolio/backend/src/models"
	"github.com/username/capfolio/backend/src/parsers/binance"
	"github.com/username/capfolio/backend/src/parsers/coinbase"
	"github.com/username/capfolio/backend/src/parsers/fidelity"
	"github.com/username/capfolio/backend/src/parsers/generic"
	"github.com/username/capfolio/backend/src/parsers/kraken"
	"github.com/username/capfolio/backend/src/parsers/robinhood"
	"github.com/username/capfolio/backend/src/parsers/schwab"
	"github.com/username/capfolio/backend/src/parsers/tabular"
)

// Options carries the caller's parse preferences. Source forces a specific
// parser instead of auto-detection; the mappings and date format only matter
// when the generic fallback ends up handling the file.
type Options struct {
	Source        string
	Mapping       models.ColumnMapping
	CryptoMapping models.CryptoColumnMapping
	DateFormat    models.DateFormat
}

func (o Options) dateFormat() models.DateFormat {
	if o.DateFormat == "" {
		return models.DateFormatMDY
	}
	return o.DateFormat
}

// Detection order is priority order: the more distinctive formats come first
// so their heuristics cannot be shadowed by looser ones.
func equityParsers() []EquityParser {
	return []EquityParser{
		fidelity.NewParser(),
		schwab.NewParser(),
		robinhood.NewParser(),
	}
}

func cryptoParsers() []CryptoParser {
	return []CryptoParser{
		coinbase.NewParser(),
		kraken.NewParser(),
		binance.NewParser(),
	}
}

// GetEquityParser returns the parser for an explicitly named source.
func GetEquityParser(source string, opts Options) (EquityParser, error) {
	if source == "generic" {
		return generic.NewEquityParser(opts.Mapping, opts.dateFormat()), nil
	}
	for _, p := range equityParsers() {
		if p.Name() == source {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unsupported equity source: %s", source)
}

// GetCryptoParser returns the parser for an explicitly named source.
func GetCryptoParser(source string, opts Options) (CryptoParser, error) {
	if source == "generic" {
		return generic.NewCryptoParser(opts.CryptoMapping, opts.dateFormat()), nil
	}
	for _, p := range cryptoParsers() {
		if p.Name() == source {
			return p, nil
		}
	}
	return nil, fmt.Errorf("unsupported crypto source: %s", source)
}

// ParseEquities reads a broker export. With no explicit source it tries each
// known broker's detection heuristic in priority order and falls back to the
// generic parser, whose required-column gate then decides whether the
// caller-supplied mapping is usable.
func ParseEquities(content string, opts Options) (*models.EquityParseResult, error) {
	table, err := tabular.ReadTable(content)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("no rows found in input")
	}

	var parser EquityParser
	if opts.Source != "" {
		parser, err = GetEquityParser(opts.Source, opts)
		if err != nil {
			return nil, err
		}
	} else {
		for _, p := range equityParsers() {
			if p.CanParse(table) {
				parser = p
				break
			}
		}
		if parser == nil {
			parser = generic.NewEquityParser(opts.Mapping, opts.dateFormat())
		}
	}

	return parser.Parse(table), nil
}

// ParseCrypto reads an exchange export, with the same detection and fallback
// behavior as ParseEquities.
func ParseCrypto(content string, opts Options) (*models.ParseResult, error) {
	table, err := tabular.ReadTable(content)
	if err != nil {
		return nil, err
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("no rows found in input")
	}

	var parser CryptoParser
	if opts.Source != "" {
		parser, err = GetCryptoParser(opts.Source, opts)
		if err != nil {
			return nil, err
		}
	} else {
		for _, p := range cryptoParsers() {
			if p.CanParse(table) {
				parser = p
				break
			}
		}
		if parser == nil {
			parser = generic.NewCryptoParser(opts.CryptoMapping, opts.dateFormat())
		}
	}

	return parser.Parse(table), nil
}
