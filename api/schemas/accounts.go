package schemas

// PlatformID identifies a supported platform class.
type PlatformID string

const (
	PlatformBluesky   PlatformID = "bluesky"
	PlatformTwitter   PlatformID = "twitter"
	PlatformInstagram PlatformID = "instagram"
	PlatformFetLife   PlatformID = "fetlife"
	PlatformOnlyFans  PlatformID = "onlyfans"
	PlatformFansly    PlatformID = "fansly"
	PlatformSnapchat  PlatformID = "snapchat"
)

// Account is one authenticated identity on one platform. AccountID is unique
// across all platforms and keys both the credential store and the on-disk
// browser session directory.
type Account struct {
	Platform    PlatformID `mapstructure:"platform" yaml:"platform" json:"platform"`
	AccountID   string     `mapstructure:"id" yaml:"id" json:"id"`
	ProfileName string     `mapstructure:"profile_name" yaml:"profile_name" json:"profile_name"`

	// Credentials for API platforms. Webview platforms authenticate through
	// the persisted browser session instead and leave these empty.
	//
	// Bluesky uses Handle + AppPassword. Twitter uses the four OAuth 1.0a
	// user-context values. Instagram (Graph API, Business/Creator accounts)
	// uses AccessToken + IGUserID, plus PageID of the linked Facebook Page
	// that hosts uploaded images.
	Handle            string `mapstructure:"handle" yaml:"handle" json:"-"`
	AppPassword       string `mapstructure:"app_password" yaml:"app_password" json:"-"`
	APIKey            string `mapstructure:"api_key" yaml:"api_key" json:"-"`
	APISecret         string `mapstructure:"api_secret" yaml:"api_secret" json:"-"`
	AccessToken       string `mapstructure:"access_token" yaml:"access_token" json:"-"`
	AccessTokenSecret string `mapstructure:"access_token_secret" yaml:"access_token_secret" json:"-"`
	IGUserID          string `mapstructure:"ig_user_id" yaml:"ig_user_id" json:"-"`
	PageID            string `mapstructure:"page_id" yaml:"page_id" json:"-"`
}

// DisplayName returns the user-facing label for this account.
func (a Account) DisplayName() string {
	if a.ProfileName != "" {
		return a.ProfileName
	}
	return a.AccountID
}

// PlatformSpecs captures a platform's content constraints and capabilities.
type PlatformSpecs struct {
	PlatformName     string
	MaxImageWidth    int
	MaxImageHeight   int
	MaxFileSizeMB    float64
	SupportedFormats []string
	MaxTextLength    int
	RequiresFacets   bool
	PlatformColor    string
	PostedViaBrowser bool
}

// specsTable holds the static constraints for every supported platform.
var specsTable = map[PlatformID]PlatformSpecs{
	PlatformBluesky: {
		PlatformName:     "Bluesky",
		MaxImageWidth:    2000,
		MaxImageHeight:   2000,
		MaxFileSizeMB:    1.0,
		SupportedFormats: []string{"JPEG", "PNG"},
		MaxTextLength:    300,
		RequiresFacets:   true,
		PlatformColor:    "#0085FF",
	},
	PlatformTwitter: {
		PlatformName:     "Twitter",
		MaxImageWidth:    4096,
		MaxImageHeight:   4096,
		MaxFileSizeMB:    5.0,
		SupportedFormats: []string{"JPEG", "PNG", "GIF", "WEBP"},
		MaxTextLength:    280,
		PlatformColor:    "#1DA1F2",
	},
	PlatformInstagram: {
		PlatformName:     "Instagram",
		MaxImageWidth:    1440,
		MaxImageHeight:   1800,
		MaxFileSizeMB:    8.0,
		SupportedFormats: []string{"JPEG", "PNG"},
		MaxTextLength:    2200,
		PlatformColor:    "#E4405F",
	},
	PlatformFetLife: {
		PlatformName:     "FetLife",
		MaxImageWidth:    4096,
		MaxImageHeight:   4096,
		MaxFileSizeMB:    10.0,
		SupportedFormats: []string{"JPEG", "PNG", "GIF"},
		MaxTextLength:    5000,
		PlatformColor:    "#C41E3A",
		PostedViaBrowser: true,
	},
	PlatformOnlyFans: {
		PlatformName:     "OnlyFans",
		MaxImageWidth:    4096,
		MaxImageHeight:   4096,
		MaxFileSizeMB:    20.0,
		SupportedFormats: []string{"JPEG", "PNG", "GIF", "WEBP"},
		MaxTextLength:    10000,
		PlatformColor:    "#00AFF0",
		PostedViaBrowser: true,
	},
	PlatformFansly: {
		PlatformName:     "Fansly",
		MaxImageWidth:    4096,
		MaxImageHeight:   4096,
		MaxFileSizeMB:    20.0,
		SupportedFormats: []string{"JPEG", "PNG", "GIF"},
		MaxTextLength:    10000,
		PlatformColor:    "#2699F7",
		PostedViaBrowser: true,
	},
	PlatformSnapchat: {
		PlatformName:     "Snapchat",
		MaxImageWidth:    1080,
		MaxImageHeight:   1920,
		MaxFileSizeMB:    5.0,
		SupportedFormats: []string{"JPEG", "PNG"},
		MaxTextLength:    250,
		PlatformColor:    "#FFFC00",
		PostedViaBrowser: true,
	},
}

// SpecsFor returns the constraint table entry for a platform. The boolean is
// false for unknown platform IDs.
func SpecsFor(id PlatformID) (PlatformSpecs, bool) {
	s, ok := specsTable[id]
	return s, ok
}
