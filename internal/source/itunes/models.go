package itunes

// Content is a single software result from the iTunes Search API.
type Content struct {
	TrackID                   int64    `json:"trackId"`
	TrackName                 string   `json:"trackName"`
	SellerName                string   `json:"sellerName"`
	ArtistName                string   `json:"artistName"`
	AverageUserRating         *float64 `json:"averageUserRating"`
	UserRatingCount           int64    `json:"userRatingCount"`
	Version                   string   `json:"version"`
	Genres                    []string `json:"genres"`
	PrimaryGenreName          string   `json:"primaryGenreName"`
	TrackViewURL              string   `json:"trackViewUrl"`
	Price                     float64  `json:"price"`
	Currency                  string   `json:"currency"`
	ReleaseDate               string   `json:"releaseDate"`
	CurrentVersionReleaseDate string   `json:"currentVersionReleaseDate"`
}

func (c Content) developer() string {
	if c.SellerName != "" {
		return c.SellerName
	}
	return c.ArtistName
}
