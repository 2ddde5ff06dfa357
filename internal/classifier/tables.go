package classifier

import (
	"fmt"
	"strings"

	"bidforecast/server/config"
)

// CategoryEntry is one row of the vehicle type table
type CategoryEntry struct {
	VehicleType  string
	SubCategory  string
	MidCategory  string
	Manufacturer string
}

// BrandEntry maps a keyword found in the item description to a manufacturer
type BrandEntry struct {
	Keyword      string
	Manufacturer string
}

// OrgEntry maps an organization name or keyword to a group
type OrgEntry struct {
	Keyword string
	Group   string
}

// Tables bundles every keyword table; it is built once and only read afterwards
type Tables struct {
	Categories []CategoryEntry
	Brands     []BrandEntry
	OrgExact   []OrgEntry
	OrgContain []OrgEntry
}

// TableFiles names the four CSV files making up a Tables value
type TableFiles struct {
	Category    string
	Brand       string
	OrgExact    string
	OrgContains string
}

// TableFilesFrom resolves the configured table file names
func TableFilesFrom(cfg *config.Config) TableFiles {
	return TableFiles{
		Category:    cfg.TablePath(cfg.Tables.CategoryFile),
		Brand:       cfg.TablePath(cfg.Tables.BrandFile),
		OrgExact:    cfg.TablePath(cfg.Tables.OrgExactFile),
		OrgContains: cfg.TablePath(cfg.Tables.OrgInFile),
	}
}

// LoadTables reads the keyword tables from disk
func LoadTables(files TableFiles) (*Tables, error) {
	categoryRows, err := config.LoadTable(files.Category, "vehicle_type", "sub_category", "mid_category", "manufacturer")
	if err != nil {
		return nil, err
	}
	brandRows, err := config.LoadTable(files.Brand, "keyword", "manufacturer")
	if err != nil {
		return nil, err
	}
	exactRows, err := config.LoadTable(files.OrgExact, "keyword", "group")
	if err != nil {
		return nil, err
	}
	containRows, err := config.LoadTable(files.OrgContains, "keyword", "group")
	if err != nil {
		return nil, err
	}

	tables := &Tables{}
	for i, row := range categoryRows {
		if row["vehicle_type"] == "" {
			return nil, fmt.Errorf("%s: row %d has an empty vehicle_type", files.Category, i+2)
		}
		tables.Categories = append(tables.Categories, CategoryEntry{
			VehicleType:  strings.ToUpper(row["vehicle_type"]),
			SubCategory:  row["sub_category"],
			MidCategory:  row["mid_category"],
			Manufacturer: row["manufacturer"],
		})
	}
	for _, row := range brandRows {
		if row["keyword"] == "" {
			continue
		}
		tables.Brands = append(tables.Brands, BrandEntry{Keyword: row["keyword"], Manufacturer: row["manufacturer"]})
	}
	tables.OrgExact = orgEntries(exactRows)
	tables.OrgContain = orgEntries(containRows)

	return tables, nil
}

func orgEntries(rows []config.TableRow) []OrgEntry {
	entries := make([]OrgEntry, 0, len(rows))
	for _, row := range rows {
		if row["keyword"] == "" {
			continue
		}
		entries = append(entries, OrgEntry{Keyword: row["keyword"], Group: row["group"]})
	}
	return entries
}
