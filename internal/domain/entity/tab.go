package entity

// TabID identifies an inspected page. For the rod backend it is the CDP
// target id.
type TabID string

func (t TabID) String() string {
	return string(t)
}

type Tab struct {
	ID    TabID  `json:"id"`
	URL   string `json:"url"`
	Title string `json:"title"`
}
