package scene2d

// Scene2D is the complete 2D scene output for an SVG top-down renderer.
type Scene2D struct {
	Metadata Metadata            `json:"metadata"`
	NGD      []Block2D           `json:"ngd"`
	EGP      []Outline2D         `json:"egp"`
	Legend   map[string]string   `json:"legend"`
	Groups   map[int]GroupExtent `json:"groups"`
}

// Metadata holds run-level summary data.
type Metadata struct {
	CRS       string        `json:"crs"`
	Threshold float64       `json:"threshold"`
	NGDBlocks int           `json:"ngd_blocks"`
	EGPBlocks int           `json:"egp_blocks"`
	Bounds    [2][2]float64 `json:"bounds"` // [[minX, minY], [maxX, maxY]]
}

// Block2D is an NGD block drawn with its classification.
type Block2D struct {
	ID          string         `json:"id"`
	Rings       [][][2]float64 `json:"rings"`
	Center      [2]float64     `json:"center"`
	Status      string         `json:"status"`
	Cardinality string         `json:"cardinality"`
	GroupID     int            `json:"group_id"`
	Fraction    float64        `json:"fraction"`
	MatchedEGP  string         `json:"matched_egp,omitempty"`
	Fill        string         `json:"fill"`
}

// Outline2D is an EGP block drawn as an outline over the NGD fill.
type Outline2D struct {
	ID      string         `json:"id"`
	Rings   [][][2]float64 `json:"rings"`
	GroupID int            `json:"group_id"`
}

// GroupExtent is the box around every block of a cardinality group, used to
// zoom to a group.
type GroupExtent struct {
	Tag    string        `json:"tag"`
	Bounds [2][2]float64 `json:"bounds"`
}
