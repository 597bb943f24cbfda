// Package gazetteer holds the fixed Brazilian state, alias and region tables
// used to tag cases with a location.
package gazetteer

import (
	"strings"

	"casemap/internal/models"
)

// Region labels.
const (
	RegionNorte       = "Norte"
	RegionNordeste    = "Nordeste"
	RegionCentroOeste = "Centro-Oeste"
	RegionSudeste     = "Sudeste"
	RegionSul         = "Sul"
)

// Alias maps a normalized match key to a canonical state name.
type Alias struct {
	Key   string
	State string
}

type unit struct {
	name   string
	key    string
	code   string
	region string
}

// units lists the 27 federative units in the order their full-name keys are
// scanned. A key that is a substring of another unit's key must come after it.
var units = []unit{
	{"Acre", "acre", "ac", RegionNorte},
	{"Alagoas", "alagoas", "al", RegionNordeste},
	{"Amapá", "amapa", "ap", RegionNorte},
	{"Amazonas", "amazonas", "am", RegionNorte},
	{"Bahia", "bahia", "ba", RegionNordeste},
	{"Ceará", "ceara", "ce", RegionNordeste},
	{"Distrito Federal", "distrito federal", "df", RegionCentroOeste},
	{"Espírito Santo", "espirito santo", "es", RegionSudeste},
	{"Goiás", "goias", "go", RegionCentroOeste},
	{"Maranhão", "maranhao", "ma", RegionNordeste},
	{"Mato Grosso do Sul", "mato grosso do sul", "ms", RegionCentroOeste},
	{"Mato Grosso", "mato grosso", "mt", RegionCentroOeste},
	{"Minas Gerais", "minas gerais", "mg", RegionSudeste},
	{"Paraíba", "paraiba", "pb", RegionNordeste},
	{"Paraná", "parana", "pr", RegionSul},
	{"Pará", "para", "pa", RegionNorte},
	{"Pernambuco", "pernambuco", "pe", RegionNordeste},
	{"Piauí", "piaui", "pi", RegionNordeste},
	{"Rio de Janeiro", "rio de janeiro", "rj", RegionSudeste},
	{"Rio Grande do Norte", "rio grande do norte", "rn", RegionNordeste},
	{"Rio Grande do Sul", "rio grande do sul", "rs", RegionSul},
	{"Rondônia", "rondonia", "ro", RegionNorte},
	{"Roraima", "roraima", "rr", RegionNorte},
	{"Santa Catarina", "santa catarina", "sc", RegionSul},
	{"São Paulo", "sao paulo", "sp", RegionSudeste},
	{"Sergipe", "sergipe", "se", RegionNordeste},
	{"Tocantins", "tocantins", "to", RegionNorte},
}

// shortAliases are partial names that commonly stand for a state in headlines.
var shortAliases = []Alias{
	{Key: "minas", State: "Minas Gerais"},
	{Key: "espirito", State: "Espírito Santo"},
}

// codeOrder is the scan order of the postal codes.
var codeOrder = []string{
	"sp", "rj", "mg", "df", "go", "rs", "pr", "ba", "ce", "pe", "am", "pa", "ma", "mt",
	"ms", "pi", "to", "se", "pb", "rn", "es", "al", "ac", "ap", "ro", "rr", "sc",
}

// sentinels are placeholder states meaning no state was detected.
var sentinels = map[string]struct{}{
	"brasil":   {},
	"nacional": {},
}

var (
	aliases  []Alias
	aliasMap map[string]string
	regions  map[string]string
	states   []string
)

func init() {
	aliasMap = make(map[string]string, len(units)*2+len(shortAliases))
	regions = make(map[string]string, len(units))

	codes := make(map[string]string, len(units))

	for _, u := range units {
		aliases = append(aliases, Alias{Key: u.key, State: u.name})
		regions[u.name] = u.region
		states = append(states, u.name)
		codes[u.code] = u.name
	}

	aliases = append(aliases, shortAliases...)

	for _, code := range codeOrder {
		aliases = append(aliases, Alias{Key: code, State: codes[code]})
	}

	for _, a := range aliases {
		aliasMap[a.Key] = a.State
	}
}

// Aliases returns the alias table in scan order.
func Aliases() []Alias {
	out := make([]Alias, len(aliases))
	copy(out, aliases)

	return out
}

// Lookup resolves an exact normalized key to its canonical state.
func Lookup(key string) (string, bool) {
	state, ok := aliasMap[key]

	return state, ok
}

// RegionOf returns the macro-region of a canonical state name.
func RegionOf(state string) (string, bool) {
	region, ok := regions[state]

	return region, ok
}

// States returns the 27 canonical state names.
func States() []string {
	out := make([]string, len(states))
	copy(out, states)

	return out
}

// Regions returns the five region labels.
func Regions() []string {
	return []string{RegionNorte, RegionNordeste, RegionCentroOeste, RegionSudeste, RegionSul}
}

// IsKnownState reports whether state is a canonical state name.
func IsKnownState(state string) bool {
	_, ok := regions[state]

	return ok
}

// IsSentinel reports whether state is a "Brasil"/"Nacional" placeholder.
func IsSentinel(state string) bool {
	_, ok := sentinels[strings.ToLower(strings.TrimSpace(state))]

	return ok
}

// GeographyFor builds the geography for a state, deriving the region.
// Sentinels and blanks give the zero value; a state outside the region table
// is kept with no region.
func GeographyFor(state string) models.Geography {
	state = strings.TrimSpace(state)
	if state == "" || IsSentinel(state) {
		return models.Geography{}
	}

	geo := models.Geography{State: &state}

	if region, ok := RegionOf(state); ok {
		geo.Region = &region
	}

	return geo
}
