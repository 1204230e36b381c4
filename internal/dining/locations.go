package dining

// Location 表示一个食堂取餐地点
type Location struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	ShortName string `json:"short_name"`
}

// Locations 是系统支持的全部食堂地点（固定注册表）
var Locations = []Location{
	{ID: "scott", Name: "Scott Traditions", ShortName: "Scott"},
	{ID: "kennedy", Name: "Kennedy Commons", ShortName: "Kennedy"},
	{ID: "morrill", Name: "Morrill Commons", ShortName: "Morrill"},
	{ID: "north", Name: "North Commons", ShortName: "North"},
	{ID: "curl", Name: "Curl Market", ShortName: "Curl"},
	{ID: "sloopy", Name: "Sloopy's Diner", ShortName: "Sloopy's"},
	{ID: "marketplace", Name: "The Marketplace", ShortName: "Marketplace"},
	{ID: "union", Name: "Ohio Union", ShortName: "Union"},
}

// GetByID 根据ID查找地点
func GetByID(id string) (*Location, bool) {
	for i := range Locations {
		if Locations[i].ID == id {
			return &Locations[i], true
		}
	}
	return nil, false
}

// IsValid 判断地点ID是否在注册表中
func IsValid(id string) bool {
	_, ok := GetByID(id)
	return ok
}
