package fub

type Email struct {
	Value string `json:"value"`
}

type Phone struct {
	Value string `json:"value"`
}

type Address struct {
	Street    string `json:"street"`
	IsPrimary bool   `json:"isPrimary"`
}

type Person struct {
	FirstName      string    `json:"firstName,omitempty"`
	LastName       string    `json:"lastName,omitempty"`
	Stage          string    `json:"stage"`
	Emails         []Email   `json:"emails"`
	Phones         []Phone   `json:"phones,omitempty"`
	Addresses      []Address `json:"addresses,omitempty"`
	AssignedUserID string    `json:"assignedUserId,omitempty"`
	Tags           []string  `json:"tags,omitempty"`
}

// EventInput deliberately carries no "type" field: pinning an event
// type would conflict with FUB-side automations triggered on it.
type EventInput struct {
	Source  string `json:"source,omitempty"`
	Message string `json:"message,omitempty"`
	Person  Person `json:"person"`
}

type User struct {
	ID    int    `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type identityResponse struct {
	Account struct {
		ID int `json:"id"`
	} `json:"account"`
	ID int `json:"id"`
}

type usersResponse struct {
	Users []User `json:"users"`
}

type peopleResponse struct {
	People []struct {
		Tags []string `json:"tags"`
	} `json:"people"`
}
