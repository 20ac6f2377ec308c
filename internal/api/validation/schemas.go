package validation

import (
	"context"
	"regexp"
	"strings"
)

// password needs a digit, a lowercase and an uppercase letter, 8 to 16 long.
func passwordComplexity(s string) bool {
	if n := len([]rune(s)); n < 8 || n > 16 {
		return false
	}
	return hasDigit.MatchString(s) && hasLower.MatchString(s) && hasUpper.MatchString(s)
}

var (
	hasDigit = regexp.MustCompile(`\d`)
	hasLower = regexp.MustCompile(`[a-z]`)
	hasUpper = regexp.MustCompile(`[A-Z]`)
)

func usernameField() Field {
	return NewField("username",
		IsString("Username must be a string!"),
		Trim(),
		NotEmpty("Username cannot be empty!"),
		MinLen(5, "Username must be at least 5 characters!"),
		MaxLen(20, "Username cannot be more than 20 characters!"),
	)
}

func emailField() Field {
	return NewField("email",
		IsString("Email must be a string!"),
		Trim(),
		NotEmpty("Email cannot be empty!"),
		IsEmail("Please enter a valid email!"),
	)
}

func passwordField() Field {
	return NewField("password",
		IsString("Password must be a string!"),
		Trim(),
		NotEmpty("Password cannot be empty!"),
		MinLen(8, "Password must be at least 8 characters!"),
		MaxLen(16, "Password cannot be more than 16 characters!"),
		Custom(func(_ context.Context, v any, _ Doc) string {
			if s, _ := v.(string); !passwordComplexity(s) {
				return "Password must contain at least 1 digit, 1 uppercase and 1 lowercase letter!"
			}
			return ""
		}),
	)
}

func photoURLField() Field {
	return NewField("photoURL",
		IsString("Photo URL must be a string!"),
		Trim(),
		URL("Please enter a valid photo URL!"),
	).Optional()
}

// Request schemas. Messages are shown to end users verbatim.
var SignUp = Schema{Fields: []Field{usernameField(), emailField(), passwordField()}}

var SignIn = Schema{Fields: []Field{
	emailField(),
	NewField("password",
		IsString("Password must be a string!"),
		Trim(),
		NotEmpty("Password cannot be empty!"),
	),
}}

var ProviderSignIn = Schema{Fields: []Field{
	NewField("username",
		IsString("Username must be a string!"),
		Trim(),
		NotEmpty("Username cannot be empty!"),
	),
	emailField(),
	photoURLField(),
	NewField("idToken", IsString("ID token must be a string!")).Optional(),
}}

var UpdateUser = Schema{
	AtLeastOne: []string{"username", "email", "password", "photoURL"},
	Fields: []Field{
		usernameField().Optional(),
		emailField().Optional(),
		passwordField().Optional(),
		{
			Name: "passwordConfirmation",
			When: func(d Doc) bool { return d.Has("password") || d.Has("passwordConfirmation") },
			Rules: []Rule{
				IsString("Password confirmation must be a string!"),
				Trim(),
				NotEmpty("Password confirmation cannot be empty!"),
				Custom(func(_ context.Context, v any, doc Doc) string {
					pw, _ := doc["password"].(string)
					if s, _ := v.(string); s != strings.TrimSpace(pw) {
						return "Does not match password!"
					}
					return ""
				}),
			},
		},
		photoURLField(),
	},
}

func boolField(name, label string) Field {
	return NewField(name, StrictBool("Invalid "+name+" value. "+label+" can only be checked or unchecked!"))
}

func roomsField(name, label string) Field {
	return NewField(name,
		IsInt("Invalid "+name+" value. "+label+" must be a number!"),
		MinInt(1, "There must be at least 1 "+name[:len(name)-1]+"!"),
		MaxInt(20, "There cannot be more than 20 "+name+"!"),
	)
}

func discountPrice(_ context.Context, v any, doc Doc) string {
	if offer, _ := doc["offer"].(bool); offer {
		n, ok := toInt(v)
		if _, isStr := v.(string); !ok || isStr {
			return "Invalid discount price value. Discount price must be a number!"
		}
		if n < 0 {
			return "Discount price cannot be less than 0!"
		}
		if regular, ok := toInt(doc["regularPrice"]); ok && n >= regular {
			return "Discount price must be less than the regular price!"
		}
		return ""
	}
	if v != nil {
		return "Invalid discount price value. Discount price must be null if there is no offer!"
	}
	return ""
}

// Listing validates create and update payloads. images may be nil to skip
// classification.
func Listing(images ImageValidator) Schema {
	imageRules := []Rule{
		ArrayLen(1, 6, "A listing must have at least 1 image!", "A listing can only have a maximum of 6 images!"),
		EachURL("Invalid image URL(s) found!"),
	}
	if images != nil {
		imageRules = append(imageRules, Images(images, "Invalid image(s) found! Make sure each image is an appropriate property image!"))
	}
	return Schema{Fields: []Field{
		NewField("title",
			Trim(),
			NotEmpty("Title cannot be empty!"),
			MinLen(20, "Title must be at least 20 characters!"),
			MaxLen(60, "Title cannot be more than 60 characters!"),
		),
		NewField("description",
			Trim(),
			NotEmpty("Description cannot be empty!"),
			MinLen(50, "Description must be at least 50 characters!"),
			MaxLen(2000, "Description cannot be more than 2,000 characters!"),
		),
		NewField("address",
			Trim(),
			NotEmpty("Address cannot be empty!"),
			MinLen(15, "Address must be at least 15 characters!"),
			MaxLen(60, "Address cannot be more than 60 characters!"),
		),
		NewField("type",
			Trim(),
			NotEmpty("Please choose sale or rent!"),
			OneOf("Invalid type value. Type must be sale or rent!", "sale", "rent"),
		),
		boolField("parking", "Parking"),
		boolField("furnished", "Furnished"),
		boolField("offer", "Offer"),
		roomsField("bedrooms", "Bedrooms"),
		roomsField("bathrooms", "Bathrooms"),
		NewField("regularPrice",
			IsInt("Invalid regular price value. Regular price must be a number!"),
			MinInt(50, "Regular price must be at least 50!"),
			MaxInt(100000000, "Regular price cannot be more than 100,000,000!"),
		),
		NewField("discountPrice", Custom(discountPrice)),
		NewField("imageUrls", imageRules...),
	}}
}

func queryFlag(name, label string) Field {
	return NewField(name,
		Trim(),
		OneOf("Invalid "+name+" value. "+label+" can only be checked or unchecked!", "true", "false"),
	).Optional()
}

func priceBound(name, label string, other string, ordered func(v, o int64) bool, orderMsg string) Field {
	return NewField(name,
		Trim(),
		IsInt("Invalid "+label+" value. "+capitalize(label)+" must be a number!"),
		MinInt(0, capitalize(label)+" cannot be lower than 0!"),
		MaxInt(100000000, capitalize(label)+" cannot be more than 100,000,000!"),
		Custom(func(_ context.Context, v any, doc Doc) string {
			o, ok := toInt(doc[other])
			if !ok {
				return ""
			}
			if n, _ := v.(int64); !ordered(n, o) {
				return orderMsg
			}
			return ""
		}),
	).Optional()
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return string(s[0]-'a'+'A') + s[1:]
}

var SearchListings = Schema{Fields: []Field{
	NewField("searchTerm", Trim(), MaxLen(100, "Search term cannot be more than 100 characters!")).Optional(),
	NewField("type",
		Trim(),
		OneOf("Invalid type value. Type must be 'all', 'sale', or 'rent'!", "all", "sale", "rent"),
	).Optional(),
	queryFlag("parking", "Parking"),
	queryFlag("furnished", "Furnished"),
	queryFlag("offer", "Offer"),
	priceBound("minPrice", "min price", "maxPrice", func(v, o int64) bool { return v < o }, "Min price must be less than max price!"),
	priceBound("maxPrice", "max price", "minPrice", func(v, o int64) bool { return v > o }, "Max price must be more than min price!"),
	NewField("sort",
		Trim(),
		OneOf("Invalid sort value. Sort must be 'regularPrice' or 'createdAt'!", "regularPrice", "createdAt"),
	).Optional(),
	NewField("order",
		Trim(),
		OneOf("Invalid order value. Order must be 'asc' or 'desc'!", "asc", "desc"),
	).Optional(),
	NewField("startIndex",
		Trim(),
		IsInt("Invalid start index value. Start index must be a number!"),
		MinInt(0, "Start index cannot be lower than 0!"),
		MaxInt(10000, "Start index cannot be more than 10,000!"),
	).Optional(),
	NewField("limit",
		Trim(),
		IsInt("Invalid limit value. Limit must be a number!"),
		MinInt(1, "Limit cannot be lower than 1!"),
		MaxInt(100, "Limit cannot be more than 100!"),
	).Optional(),
}}
