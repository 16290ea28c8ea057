package ui

// NavLink is a static link in the header.
type NavLink struct {
	Label string `json:"label"`
	Href  string `json:"href"`
}

var navLinks = []NavLink{
	{Label: "File Share", Href: "/fileshare"},
	{Label: "ENS Registration", Href: "/ens"},
}

// Button is the render state of a header button.
type Button struct {
	Label    string `json:"label"`
	Icon     string `json:"icon"`
	Disabled bool   `json:"disabled"`
	Active   bool   `json:"active"`
}

// Header is everything the header needs to draw itself.
type Header struct {
	Brand     string    `json:"brand"`
	Links     []NavLink `json:"links"`
	Bordered  bool      `json:"bordered"`
	Actions   bool      `json:"actions"`
	Deploy    Button    `json:"deploy"`
	Chat      Button    `json:"chat"`
	Workbench Button    `json:"workbench"`
}

// HeaderFor derives the header from the shell state. Action buttons only
// appear once a chat has started.
func HeaderFor(s State) Header {
	deploy := Button{Label: "Deploy to IPFS", Icon: "i-ph:cloud-arrow-up"}
	if s.Deploying {
		deploy = Button{Label: "Deploying...", Icon: "i-svg-spinners:90-ring-with-bg", Disabled: true}
	}
	links := make([]NavLink, len(navLinks))
	copy(links, navLinks)
	return Header{
		Brand:     "DeHost",
		Links:     links,
		Bordered:  s.Started,
		Actions:   s.Started,
		Deploy:    deploy,
		Chat:      Button{Icon: "i-bolt:chat", Active: s.ShowChat, Disabled: !s.CanHideChat()},
		Workbench: Button{Icon: "i-ph:code-bold", Active: s.ShowWorkbench},
	}
}
