package graph

// Mode controls whether a node participates in execution.
type Mode int

const (
	ModeAlways Mode = iota
	ModeOnEvent
	ModeNever
	ModeOnTrigger
	ModeBypass
)

// WidgetRef marks an input slot as backed by one of the node's widgets.
type WidgetRef struct {
	Name string `json:"name"`
}

// InputSlot is a single connectable input on a node. Link is nil when
// the slot is unconnected. A non-nil Link id may point at a link entry
// that no longer exists; callers must treat that the same as nil.
type InputSlot struct {
	Name   string     `json:"name"`
	Type   string     `json:"type"`
	Link   *int       `json:"link"`
	Widget *WidgetRef `json:"widget,omitempty"`
}

// OutputSlot is a single connectable output on a node.
type OutputSlot struct {
	Name      string `json:"name"`
	Type      string `json:"type"`
	Links     []int  `json:"links"`
	SlotIndex int    `json:"slot_index,omitempty"`
}

// Node is a single node of a workflow document.
type Node struct {
	ID         int
	Type       string
	Title      string
	Mode       Mode
	Inputs     []InputSlot
	Outputs    []OutputSlot
	Widgets    WidgetValues
	Properties map[string]any
	Pos        []float64
	Size       []float64
	Order      int
	Flags      map[string]any
	Color      string
	BgColor    string
}

// InputByName returns the input slot with the given name, or nil.
func (n *Node) InputByName(name string) *InputSlot {
	for i := range n.Inputs {
		if n.Inputs[i].Name == name {
			return &n.Inputs[i]
		}
	}
	return nil
}

// Link is a directed connection from an output slot to an input slot.
type Link struct {
	ID         int
	OriginID   int
	OriginSlot int
	TargetID   int
	TargetSlot int
	Type       string
}

// Group is a visual grouping of nodes by bounding box.
type Group struct {
	Title    string     `json:"title"`
	Bounding [4]float64 `json:"bounding"`
	Color    string     `json:"color,omitempty"`
}

// Contains reports whether a position lies inside the group's bounds.
func (gr *Group) Contains(x, y float64) bool {
	return x >= gr.Bounding[0] && x <= gr.Bounding[0]+gr.Bounding[2] &&
		y >= gr.Bounding[1] && y <= gr.Bounding[1]+gr.Bounding[3]
}

// Graph is a full workflow document as edited in the client.
type Graph struct {
	LastNodeID int
	LastLinkID int
	Nodes      []*Node
	Links      map[int]*Link
	Groups     []*Group
	Config     map[string]any
	Extra      map[string]any
	Version    float64

	nodesByID map[int]*Node
}

// BuildIndexes rebuilds the node lookup table. Call after adding or
// removing nodes outside the provided helpers.
func (g *Graph) BuildIndexes() {
	g.nodesByID = make(map[int]*Node, len(g.Nodes))
	for _, n := range g.Nodes {
		g.nodesByID[n.ID] = n
	}
}

// NodeByID returns the node with the given id, or nil.
func (g *Graph) NodeByID(id int) *Node {
	if g.nodesByID == nil {
		g.BuildIndexes()
	}
	return g.nodesByID[id]
}

// LinkByID returns the link with the given id, or nil when the id is
// orphaned.
func (g *Graph) LinkByID(id int) *Link {
	return g.Links[id]
}

// NextLinkID allocates a fresh link id above every id seen so far.
func (g *Graph) NextLinkID() int {
	g.LastLinkID++
	return g.LastLinkID
}

// AddLink inserts a link into the link map.
func (g *Graph) AddLink(l *Link) {
	if g.Links == nil {
		g.Links = make(map[int]*Link)
	}
	g.Links[l.ID] = l
	if l.ID > g.LastLinkID {
		g.LastLinkID = l.ID
	}
}

// GroupWithTitle returns the first group with the given title, or nil.
func (g *Graph) GroupWithTitle(title string) *Group {
	for _, gr := range g.Groups {
		if gr.Title == title {
			return gr
		}
	}
	return nil
}

// NodesInGroup returns the nodes whose position lies inside the group's
// bounding box, in document order.
func (g *Graph) NodesInGroup(gr *Group) []*Node {
	if gr == nil {
		return nil
	}
	var nodes []*Node
	for _, n := range g.Nodes {
		if len(n.Pos) < 2 {
			continue
		}
		if gr.Contains(n.Pos[0], n.Pos[1]) {
			nodes = append(nodes, n)
		}
	}
	return nodes
}
