package offline_cache

type Icon struct {
	Src   string `json:"src"`
	Sizes string `json:"sizes"`
	Type  string `json:"type"`
}

type Manifest struct {
	Name            string `json:"name"`
	ShortName       string `json:"short_name"`
	Description     string `json:"description"`
	StartURL        string `json:"start_url"`
	Display         string `json:"display"`
	BackgroundColor string `json:"background_color"`
	ThemeColor      string `json:"theme_color"`
	Icons           []Icon `json:"icons"`
}

const (
	ThemeColor      = "#4f46e5"
	BackgroundColor = "#ffffff"
)

func DefaultManifest() Manifest {
	return Manifest{
		Name:            "Custom Calc",
		ShortName:       "CustomCalc",
		Description:     "Scientific calculator with custom formulas",
		StartURL:        "/",
		Display:         "standalone",
		BackgroundColor: BackgroundColor,
		ThemeColor:      ThemeColor,
		Icons: []Icon{
			{Src: "/icons/custom-calc-192.png", Sizes: "192x192", Type: "image/png"},
			{Src: "/icons/custom-calc-512.png", Sizes: "512x512", Type: "image/png"},
		},
	}
}
