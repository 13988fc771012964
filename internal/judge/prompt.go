package judge

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jingnanl/infant-guard/internal/audioanalysis"
	"github.com/jingnanl/infant-guard/internal/face"
)

const notAvailable = "N/A"

var statusHints = map[Status]string{
	StatusSleeping:      "eyes closed and very low sound intensity",
	StatusCrying:        "crying detected in the audio or a distressed facial expression",
	StatusHappy:         "smiling or laughter detected",
	StatusUncomfortable: "distressed facial expression without obvious crying",
	StatusHungry:        "light whimpering with frequent mouth movement",
	StatusCalm:          "relaxed face and no notable sound",
}

// PromptInput is everything rendered into the judge prompt.
type PromptInput struct {
	Face     face.Analysis
	Audio    audioanalysis.AudioClassification
	Features *audioanalysis.Features // nil when no audio was captured
	Daylight string                  // optional, e.g. "night (sun below horizon)"
}

// BuildPrompt renders the evidence and the expected answer format.
func BuildPrompt(in PromptInput) string {
	var b strings.Builder

	b.WriteString("Assess the state of the baby based on the following information.\n\n")

	b.WriteString("Visual analysis:\n")
	fmt.Fprintf(&b, "- Detected emotions: %s\n", strings.Join(in.Face.Emotions, ", "))
	fmt.Fprintf(&b, "- Eyes open: %t\n", in.Face.EyesOpen)
	fmt.Fprintf(&b, "- Mouth open: %t\n", in.Face.MouthOpen)
	fmt.Fprintf(&b, "- Smiling: %t\n\n", in.Face.IsSmiling)

	b.WriteString("Audio analysis:\n")
	fmt.Fprintf(&b, "- Crying detected: %t\n", in.Audio.HasCrying)
	fmt.Fprintf(&b, "- Laughter detected: %t\n", in.Audio.HasLaughter)
	fmt.Fprintf(&b, "- Sound intensity: %s\n", formatFloat(in.Audio.Intensity))
	b.WriteString("- Sound features:\n")
	low, high, ratio, transients := featureLines(in.Features)
	fmt.Fprintf(&b, "  * Low band energy (250-600Hz): %s\n", low)
	fmt.Fprintf(&b, "  * High band energy (1000-1600Hz): %s\n", high)
	fmt.Fprintf(&b, "  * Band energy ratio: %s\n", ratio)
	fmt.Fprintf(&b, "  * Energy transients: %s\n", transients)

	if in.Daylight != "" {
		fmt.Fprintf(&b, "\nTime of day: %s\n", in.Daylight)
	}

	b.WriteString("\nCombine the visual and audio evidence and decide which state the baby is in:\n")
	labels := make([]string, 0, len(Statuses))
	for i, s := range Statuses {
		fmt.Fprintf(&b, "%d. %s - if %s\n", i+1, s, statusHints[s])
		labels = append(labels, string(s))
	}

	b.WriteString("\nAnswer in exactly this format:\n\n")
	fmt.Fprintf(&b, "<STATUS>%s</STATUS>\n", strings.Join(labels, "|"))
	b.WriteString("<ANALYSIS>\n")
	b.WriteString("Explain why this state was chosen from the detected facial features, emotions and sounds.\n")
	b.WriteString("In particular describe:\n")
	b.WriteString("1. the emotion shown by the facial expression\n")
	b.WriteString("2. the state indicated by the sound features\n")
	b.WriteString("3. how the two were combined\n")
	b.WriteString("</ANALYSIS>\n")

	return b.String()
}

func featureLines(f *audioanalysis.Features) (low, high, ratio, transients string) {
	if f == nil {
		return notAvailable, notAvailable, notAvailable, notAvailable
	}
	bands := f.Spectral.Bands
	ratio = notAvailable
	if bands.Fundamental > 0 {
		ratio = formatFloat(bands.Harmonic1 / bands.Fundamental)
	}
	return formatFloat(bands.Fundamental), formatFloat(bands.Harmonic1), ratio, strconv.Itoa(f.Temporal.TransientCount)
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 4, 64)
}
