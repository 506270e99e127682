package core

// Defaults shared by the ingestion lanes.
const (
	DefaultCategory = "general"
	DefaultCountry  = "us"
	DefaultLanguage = "en"
	DefaultPageSize = 50
	MaxPageSize     = 100

	MaxTitleLength = 500
	MaxURLLength   = 2000
)

// Categories lists the categories supported by the news provider.
var Categories = []string{
	"business",
	"entertainment",
	"general",
	"health",
	"science",
	"sports",
	"technology",
}

// ValidCountries lists the country codes accepted by the news provider.
var ValidCountries = map[string]bool{
	"ae": true, "ar": true, "at": true, "au": true, "be": true, "bg": true, "br": true, "ca": true,
	"ch": true, "cn": true, "co": true, "cu": true, "cz": true, "de": true, "eg": true, "es": true,
	"fr": true, "gb": true, "gr": true, "hk": true, "hu": true, "id": true, "ie": true, "il": true,
	"in": true, "is": true, "it": true, "jp": true, "kr": true, "lt": true, "lv": true, "ma": true,
	"mx": true, "my": true, "ng": true, "nl": true, "no": true, "nz": true, "ph": true, "pk": true,
	"pl": true, "pt": true, "ro": true, "rs": true, "ru": true, "sa": true, "se": true, "sg": true,
	"si": true, "sk": true, "th": true, "tr": true, "tw": true, "ua": true, "us": true, "ve": true,
	"za": true, "zh": true,
}

// ValidLanguages lists the language codes accepted by the news provider.
var ValidLanguages = map[string]bool{
	"ar": true, "en": true, "cn": true, "de": true, "es": true, "fr": true, "he": true, "it": true,
	"nl": true, "no": true, "pt": true, "ru": true, "sv": true, "se": true, "ud": true, "zh": true,
	"en-US": true,
}

// IsValidCategory reports whether category is a provider category.
func IsValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}
