package config

// SemanticField names one logical column the ingestion pipeline needs to
// locate inside an arbitrarily-shaped source table.
type SemanticField string

const (
	FieldName      SemanticField = "name"
	FieldPrice     SemanticField = "price"
	FieldArea      SemanticField = "area"
	FieldYearMonth SemanticField = "yearMonth"
	FieldDay       SemanticField = "day"
	FieldLocality  SemanticField = "locality"
	FieldFloor     SemanticField = "floor"
)

// FieldAliases maps each semantic field to the column names it is known to
// appear under across data vintages, in priority order. Resolution is a
// first-match lookup against the normalized column set.
var FieldAliases = map[SemanticField][]string{
	FieldName:      {"단지명", "아파트", "오피스텔", "건물명", "상호", "단지"},
	FieldPrice:     {"거래금액(만원)", "보증금(만원)", "매매가", "거래금액", "가격", "금액"},
	FieldArea:      {"전용면적(㎡)", "전용면적", "평형", "계약면적(㎡)", "면적"},
	FieldYearMonth: {"계약년월", "거래년월", "연월", "계약일자"},
	FieldDay:       {"계약일", "거래일", "날짜"},
	FieldLocality:  {"법정동", "시군구", "지역", "주소", "동"},
	FieldFloor:     {"층"},
}

// RequiredFields must all resolve for a file to be ingested. Day and
// locality are optional and have defaults.
var RequiredFields = []SemanticField{FieldName, FieldPrice, FieldArea, FieldYearMonth}

// HeaderTokens are the labels whose presence identifies a header row inside
// a file with leading metadata banners.
var HeaderTokens = []string{"단지명", "아파트", "오피스텔", "건물명", "거래금액"}

// PositionalFallback is the fixed column layout of the standard government
// download format, used when alias resolution fails on a table with at
// least PositionalMinColumns columns.
var PositionalFallback = map[SemanticField]int{
	FieldLocality:  1,
	FieldName:      5,
	FieldArea:      6,
	FieldYearMonth: 7,
	FieldDay:       8,
	FieldPrice:     9,
}

const PositionalMinColumns = 10

// AliasesFor returns the ordered alias list for a semantic field.
func AliasesFor(field SemanticField) []string {
	return FieldAliases[field]
}
