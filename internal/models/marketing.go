package models

type Banner struct {
	BaseModel
	Title      string `json:"title"`
	ImageLight string `json:"image_light"`
	ImageDark  string `json:"image_dark"`
	URL        string `json:"url"`
	IsActive   bool   `json:"is_active"`
}

type SiteTheme struct {
	BaseModel
	Name         string `gorm:"uniqueIndex" json:"name"`
	PrimaryColor string `json:"primary_color"`
	AccentColor  string `json:"accent_color"`
	LogoImage    string `json:"logo_image"`
	IsActive     bool   `json:"is_active"`
}
