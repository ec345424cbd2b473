// Package digits cataloga os resultados válidos de cada tipo de aposta.
package digits

import (
	"strconv"
	"strings"
)

// Tipos de aposta reconhecidos (vocabulário fixo das chaves de bet_types)
const (
	Single      = "single"
	Jodi        = "jodi"
	SinglePatti = "single patti"
	DoublePatti = "double patti"
	TriplePatti = "triple patti"
)

var vocabulary = []string{Single, Jodi, SinglePatti, DoublePatti, TriplePatti}

// lista curada: só as trincas válidas por classe de soma de dígitos
var singlePatti = []string{
	"128", "137", "146", "236", "245", "290", "380", "470", "489",
	"560", "678", "579", "129", "138", "147", "156", "237", "246",
	"345", "390", "480", "570", "679", "589", "120", "139", "148",
	"157", "238", "247", "256", "346", "490", "580", "670", "689",
	"130", "149", "158", "167", "239", "248", "257", "347", "356",
	"590", "680", "789", "140", "159", "168", "230", "249", "258",
	"267", "348", "357", "456", "690", "780", "123", "150", "169",
	"178", "240", "259", "268", "349", "358", "457", "367", "790",
	"124", "160", "179", "250", "269", "278", "340", "359", "368",
	"458", "467", "890", "125", "134", "170", "189", "260", "279",
	"350", "369", "378", "459", "567", "468", "126", "135", "180",
	"234", "270", "289", "360", "379", "450", "469", "478", "568",
	"127", "136", "145", "190", "235", "280", "370", "479", "460",
	"569", "389", "578",
}

var doublePatti = []string{
	"100", "119", "155", "227", "335", "344", "399", "588", "669",
	"110", "200", "228", "255", "336", "499", "660", "688", "778",
	"166", "229", "300", "337", "355", "445", "599", "779", "788",
	"112", "220", "266", "338", "400", "446", "455", "699", "770",
	"113", "122", "177", "339", "366", "447", "500", "799", "889",
	"114", "277", "330", "448", "466", "556", "600", "880", "899",
	"115", "133", "188", "223", "377", "449", "557", "566", "700",
	"116", "224", "233", "288", "440", "477", "558", "800", "990",
	"117", "144", "199", "225", "388", "559", "577", "667", "900",
	"118", "226", "244", "299", "334", "488", "550", "668", "677",
}

var (
	domains = map[string][]string{
		Single:      sequence(10, 1),
		Jodi:        sequence(100, 2),
		SinglePatti: singlePatti,
		DoublePatti: doublePatti,
		TriplePatti: triples(),
	}
	members = buildMembers()
)

func sequence(n, width int) []string {
	out := make([]string, n)
	for i := 0; i < n; i++ {
		s := strconv.Itoa(i)
		out[i] = strings.Repeat("0", width-len(s)) + s
	}
	return out
}

func triples() []string {
	out := make([]string, 10)
	for i := 0; i < 10; i++ {
		out[i] = strings.Repeat(strconv.Itoa(i), 3)
	}
	return out
}

func buildMembers() map[string]map[string]struct{} {
	m := make(map[string]map[string]struct{}, len(domains))
	for bt, list := range domains {
		set := make(map[string]struct{}, len(list))
		for _, d := range list {
			set[d] = struct{}{}
		}
		m[bt] = set
	}
	return m
}

// Normalize padroniza a chave do tipo de aposta (trim, minúsculas, espaços simples)
func Normalize(betType string) string {
	return strings.Join(strings.Fields(strings.ToLower(betType)), " ")
}

// Vocabulary retorna as chaves de tipo de aposta aceitas, em ordem fixa
func Vocabulary() []string {
	out := make([]string, len(vocabulary))
	copy(out, vocabulary)
	return out
}

// Known informa se o tipo de aposta pertence ao vocabulário
func Known(betType string) bool {
	_, ok := domains[Normalize(betType)]
	return ok
}

// Domain retorna o conjunto ordenado de resultados do tipo de aposta.
// O slice é uma cópia; o chamador pode alterá-lo.
func Domain(betType string) ([]string, bool) {
	list, ok := domains[Normalize(betType)]
	if !ok {
		return nil, false
	}
	out := make([]string, len(list))
	copy(out, list)
	return out, true
}

// Size retorna |Domain(betType)| sem copiar
func Size(betType string) int {
	return len(domains[Normalize(betType)])
}

// Contains verifica se outcome é membro do domínio do tipo de aposta
func Contains(betType, outcome string) bool {
	set, ok := members[Normalize(betType)]
	if !ok {
		return false
	}
	_, ok = set[outcome]
	return ok
}

// ClassifyPatti retorna o tipo de patti ao qual a trinca pertence.
// Trincas fora das listas curadas retornam false.
func ClassifyPatti(patti string) (string, bool) {
	for _, bt := range []string{SinglePatti, DoublePatti, TriplePatti} {
		if Contains(bt, patti) {
			return bt, true
		}
	}
	return "", false
}

// Ank é o dígito single derivado de uma patti (soma dos dígitos mod 10)
func Ank(patti string) (string, bool) {
	if len(patti) != 3 {
		return "", false
	}
	sum := 0
	for _, r := range patti {
		if r < '0' || r > '9' {
			return "", false
		}
		sum += int(r - '0')
	}
	return strconv.Itoa(sum % 10), true
}
