// Package gazetteer builds and queries the place-name database used to
// resolve location mentions.
package gazetteer

// Fields is the ordered column layout of the tab-delimited dataset
var Fields = []string{
	"geonameid",
	"name",
	"asciiname",
	"alternatenames",
	"latitude",
	"longitude",
	"feature_class",
	"feature_code",
	"country_code",
	"cc2",
	"admin1_code",
	"admin2_code",
	"admin3_code",
	"admin4_code",
	"population",
	"elevation",
	"dem",
	"timezone",
	"modification_date",
}

// Place is one row of the geonames table
type Place struct {
	GeonameID    string  `gorm:"column:geonameid;primaryKey" json:"geonameid" yaml:"geonameid"`
	Name         string  `gorm:"column:name" json:"name" yaml:"name"`
	ASCIIName    string  `gorm:"column:asciiname" json:"asciiname" yaml:"asciiname"`
	Latitude     float64 `gorm:"column:latitude" json:"latitude" yaml:"latitude"`
	Longitude    float64 `gorm:"column:longitude" json:"longitude" yaml:"longitude"`
	FeatureClass string  `gorm:"column:feature_class" json:"feature_class" yaml:"feature_class"`
	FeatureCode  string  `gorm:"column:feature_code" json:"feature_code" yaml:"feature_code"`
	CountryCode  string  `gorm:"column:country_code" json:"country_code" yaml:"country_code"`
	CC2          string  `gorm:"column:cc2" json:"cc2" yaml:"cc2"`
	Admin1Code   string  `gorm:"column:admin1_code" json:"admin1_code" yaml:"admin1_code"`
	Admin2Code   string  `gorm:"column:admin2_code" json:"admin2_code" yaml:"admin2_code"`
	Admin3Code   string  `gorm:"column:admin3_code" json:"admin3_code" yaml:"admin3_code"`
	Admin4Code   string  `gorm:"column:admin4_code" json:"admin4_code" yaml:"admin4_code"`
	Population   int64   `gorm:"column:population" json:"population" yaml:"population"`
}

// TableName overrides the default pluralized table name
func (Place) TableName() string { return "geonames" }

// AlternateName is one distinct name of a place. The lookup index is
// created after the bulk import, not by migration.
type AlternateName struct {
	GeonameID               string `gorm:"column:geonameid"`
	AlternateName           string `gorm:"column:alternatename"`
	AlternateNameLemmatized string `gorm:"column:alternatename_lemmatized"`
}

func (AlternateName) TableName() string { return "alternatenames" }

// AlternateNameCount is the per-place number of alternate names
type AlternateNameCount struct {
	GeonameID string `gorm:"column:geonameid;primaryKey"`
	Count     int64  `gorm:"column:count"`
}

func (AlternateNameCount) TableName() string { return "alternatename_counts" }

const (
	alternateNameIndexSQL = `CREATE INDEX alternatename_index ON alternatenames (alternatename_lemmatized)`

	alternateNameCountsSQL = `INSERT INTO alternatename_counts
SELECT geonameid, count(alternatename)
FROM geonames INNER JOIN alternatenames USING (geonameid)
GROUP BY geonameid`
)
