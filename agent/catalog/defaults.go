package catalog

const DefaultCurrency = "INR"

// DefaultItems is the Jacferdi Studios sample catalog.
func DefaultItems() []Item {
	return []Item{
		{
			ID:          "hoodie-001",
			Name:        "Jacferdi Hoodie",
			Description: "Unisex minimalist hoodie by Jacferdi Studios",
			Price:       1800,
			Currency:    DefaultCurrency,
			Category:    "hoodie",
			Color:       "black",
			Sizes:       []string{"S", "M", "L", "XL"},
		},
		{
			ID:          "tshirt-001",
			Name:        "T-Shirt",
			Description: "Unisex classic t-shirt by Jacferdi Studios",
			Price:       1200,
			Currency:    DefaultCurrency,
			Category:    "tshirt",
			Color:       "white",
			Sizes:       []string{"S", "M", "L", "XL"},
		},
		{
			ID:          "jeans-001",
			Name:        "Straight Fit Jeans",
			Description: "Slim fit jeans by Jacferdi Studios",
			Price:       2200,
			Currency:    DefaultCurrency,
			Category:    "jeans",
			Color:       "indigo",
			Sizes:       []string{"S", "M", "L", "XL"},
		},
		{
			ID:          "shoes-001",
			Name:        "Converse Sneakers",
			Description: "Casual sneakers by Jacferdi Studios",
			Price:       3000,
			Currency:    DefaultCurrency,
			Category:    "shoes",
			Color:       "gray",
			Sizes:       []string{"S", "M", "L"},
		},
	}
}

// DefaultTopics is the security-awareness tutor content.
func DefaultTopics() []TopicContent {
	return []TopicContent{
		{
			ID:             "phishing",
			Title:          "Phishing",
			Summary:        "Phishing is a social engineering attack where someone impersonates a trusted sender to trick you into revealing credentials, paying money, or opening malware. Check the sender address, hover before clicking, and be wary of urgency.",
			SampleQuestion: "You get an email from your bank asking you to confirm your password through a link. What are two signs it could be phishing, and what should you do?",
		},
		{
			ID:             "passwords",
			Title:          "Password Hygiene",
			Summary:        "Strong passwords are long, unique per site, and stored in a password manager. Reusing a password means one breach unlocks many accounts.",
			SampleQuestion: "Why is reusing the same strong password on several sites still risky?",
		},
		{
			ID:             "mfa",
			Title:          "Multi-Factor Authentication",
			Summary:        "Multi-factor authentication adds a second proof of identity, such as an authenticator app code or hardware key, so a stolen password alone is not enough to log in.",
			SampleQuestion: "Which is stronger as a second factor: an SMS code or a hardware security key, and why?",
		},
	}
}
