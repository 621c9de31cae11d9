package model

type Category struct {
	BaseModel
	Name string `gorm:"type:varchar(255);uniqueIndex:idx_categories_name;not null" json:"name"`
}

type Supplier struct {
	BaseModel
	Name    string  `gorm:"type:varchar(255);not null" json:"name"`
	Contact *string `gorm:"type:varchar(255)" json:"contact"`
	Address *string `gorm:"type:text" json:"address"`
}
