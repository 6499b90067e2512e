package pharmacy

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// DefaultCountry 地址未填写国家时使用
const DefaultCountry = "USA"

var clockPattern = regexp.MustCompile(`^([01]\d|2[0-3]):[0-5]\d$`)

// Address 药房地址，嵌入到 pharmacies 表
type Address struct {
	Street  string `json:"street" gorm:"size:255"`
	City    string `json:"city" gorm:"size:128;index"`
	State   string `json:"state" gorm:"size:64"`
	ZipCode string `json:"zipCode" gorm:"size:32"`
	Country string `json:"country" gorm:"size:64"`
}

// OpeningHours 营业时间，DayOfWeek 0 表示周日
type OpeningHours struct {
	DayOfWeek int    `json:"dayOfWeek"`
	OpenTime  string `json:"openTime"`
	CloseTime string `json:"closeTime"`
}

// Pharmacy 药房记录
type Pharmacy struct {
	ID              string         `json:"_id" gorm:"primaryKey;size:36"`
	Name            string         `json:"name" gorm:"size:255;not null;index"`
	Address         Address        `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	PhoneNumber     string         `json:"phoneNumber" gorm:"size:64;not null"`
	Email           string         `json:"email,omitempty" gorm:"size:255"`
	Website         string         `json:"website,omitempty" gorm:"size:255"`
	LicenseNumber   string         `json:"licenseNumber" gorm:"size:64;not null;uniqueIndex"`
	ServicesOffered []string       `json:"servicesOffered" gorm:"serializer:json"`
	OpeningHours    []OpeningHours `json:"openingHours" gorm:"serializer:json"`
	IsActive        bool           `json:"isActive" gorm:"index"`
	CreatedAt       time.Time      `json:"createdAt"`
	UpdatedAt       time.Time      `json:"updatedAt"`
}

// Normalize trims text fields, drops blank services and fills the default country.
func (p *Pharmacy) Normalize() {
	p.Name = strings.TrimSpace(p.Name)
	p.PhoneNumber = strings.TrimSpace(p.PhoneNumber)
	p.Email = strings.TrimSpace(p.Email)
	p.Website = strings.TrimSpace(p.Website)
	p.LicenseNumber = strings.TrimSpace(p.LicenseNumber)
	p.Address.Street = strings.TrimSpace(p.Address.Street)
	p.Address.City = strings.TrimSpace(p.Address.City)
	p.Address.State = strings.TrimSpace(p.Address.State)
	p.Address.ZipCode = strings.TrimSpace(p.Address.ZipCode)
	p.Address.Country = strings.TrimSpace(p.Address.Country)
	if p.Address.Country == "" {
		p.Address.Country = DefaultCountry
	}

	services := make([]string, 0, len(p.ServicesOffered))
	for _, s := range p.ServicesOffered {
		if s = strings.TrimSpace(s); s != "" {
			services = append(services, s)
		}
	}
	p.ServicesOffered = services
	if p.OpeningHours == nil {
		p.OpeningHours = []OpeningHours{}
	}
}

// Validate returns the list of problems with the record, empty when valid.
func (p *Pharmacy) Validate() []string {
	var problems []string
	if p.Name == "" {
		problems = append(problems, "name is required")
	}
	if p.LicenseNumber == "" {
		problems = append(problems, "licenseNumber is required")
	}
	if p.PhoneNumber == "" {
		problems = append(problems, "phoneNumber is required")
	}
	if p.Address.Street == "" {
		problems = append(problems, "address.street is required")
	}
	if p.Email != "" && !strings.Contains(p.Email, "@") {
		problems = append(problems, "email is invalid")
	}
	for i, h := range p.OpeningHours {
		if h.DayOfWeek < 0 || h.DayOfWeek > 6 {
			problems = append(problems, fmt.Sprintf("openingHours[%d].dayOfWeek must be between 0 and 6", i))
		}
		if !clockPattern.MatchString(h.OpenTime) {
			problems = append(problems, fmt.Sprintf("openingHours[%d].openTime must be HH:MM", i))
		}
		if !clockPattern.MatchString(h.CloseTime) {
			problems = append(problems, fmt.Sprintf("openingHours[%d].closeTime must be HH:MM", i))
		}
	}
	return problems
}
