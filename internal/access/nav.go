package access

type NavItem struct {
	Href  string `json:"href"`
	Label string `json:"label"`
}

// NavItems lists the sections role may open, in display order.
func NavItems(role Role) []NavItem {
	items := []NavItem{
		{Href: "/dashboard", Label: "Home"},
		{Href: "/timesheet", Label: "My work"},
		{Href: "/projects", Label: "Projects"},
	}
	if role.Privileged() {
		items = append(items,
			NavItem{Href: "/profiles", Label: "People"},
			NavItem{Href: "/payroll", Label: "Payroll"},
		)
	}
	items = append(items, NavItem{Href: "/settings/appearance", Label: "Settings"})
	if role == RoleAdmin {
		items = append(items, NavItem{Href: "/admin", Label: "Admin"})
	}
	return items
}
