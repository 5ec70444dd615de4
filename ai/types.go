package ai

// ImageryKinds lists the broad kinds of imagery analyzers are steered toward.
// Tags themselves are free-form; these only anchor the vocabulary.
var ImageryKinds = []string{
	"animal",
	"body",
	"celestial",
	"color",
	"domestic",
	"fire",
	"light",
	"machine",
	"plant",
	"season",
	"sea",
	"sound",
	"urban",
	"weather",
}
