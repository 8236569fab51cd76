package curriculum

// StarterSnippets returns a small built-in snippet set covering common
// elementary social studies and science units. Deployments without a
// curriculum database fall back to these so focus enrichment still works.
func StarterSnippets() []Snippet {
	return []Snippet{
		{
			ID:    "soc-6-confederation",
			Topic: "confederation",
			Grade: 6,
			Text:  "In 1867 four provinces joined to form Canada. Leaders from each colony met to agree on how one country could share laws, trade, and a railway.",
		},
		{
			ID:    "soc-6-democracy",
			Topic: "democracy and decision making",
			Grade: 6,
			Text:  "In a democracy, people choose representatives by voting. Representatives meet in an assembly to discuss problems and make decisions for everyone.",
		},
		{
			ID:    "sci-5-wetland",
			Topic: "wetland ecosystems",
			Grade: 5,
			Text:  "A wetland is land covered by shallow water for part of the year. Cattails, frogs, and dragonflies depend on wetlands, and wetlands filter water for the land around them.",
		},
		{
			ID:    "sci-5-water-cycle",
			Topic: "water cycle",
			Grade: 5,
			Text:  "Water evaporates from lakes and oceans, condenses into clouds, and falls back as rain or snow. The same water moves through this cycle again and again.",
		},
		{
			ID:    "sci-4-habitats",
			Topic: "habitats and communities",
			Grade: 4,
			Text:  "A habitat gives an animal food, water, and shelter. When a habitat changes, the plants and animals living there must adapt, move, or disappear.",
		},
		{
			ID:    "soc-4-identity",
			Topic: "identity and belonging",
			Grade: 4,
			Text:  "People show who they are through language, stories, food, and celebrations. A community grows stronger when people share their traditions with each other.",
		},
		{
			ID:    "any-oracy",
			Topic: "speaking in full sentences",
			Grade: 0,
			Text:  "Strong speakers answer in full sentences, give a reason for their idea, and use connecting words such as because, but, and so.",
		},
	}
}
