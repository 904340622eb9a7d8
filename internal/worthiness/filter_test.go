package worthiness

import "testing"

func TestAssessRejections(t *testing.T) {
	tests := []struct {
		name   string
		input  string
		reason string
	}{
		{"empty", "", "empty input"},
		{"whitespace only", "   \t  ", "empty input"},
		{"direct question", "When is my mom's birthday?", "question or information request"},
		{"recall request", "Tell me what I said about my sister", "question or information request"},
		{"contracted question", "What's my dentist's phone number", "question or information request"},
		{"greeting", "hello", "chat fragment or filler"},
		{"acknowledgement", "got it", "chat fragment or filler"},
		{"imperative", "delete the last one", "chat fragment or filler"},
		{"feeling", "I'm feeling tired", "chat fragment or filler"},
		{"system chatter", "the server threw an error", "chat fragment or filler"},
		{"too short", "hi ok", "chat fragment or filler"},
		{"digits only", "12345", "chat fragment or filler"},
		{"no context", "blue thing", "insufficient quality or context"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assess(tt.input)
			if got.Worthy {
				t.Fatalf("Assess(%q).Worthy = true, want false", tt.input)
			}
			if got.Reason != tt.reason {
				t.Errorf("Assess(%q).Reason = %q, want %q", tt.input, got.Reason, tt.reason)
			}
		})
	}
}

func TestAssessQuestionFlag(t *testing.T) {
	if got := Assess("Do you remember my anniversary?"); !got.Question {
		t.Errorf("question flag not set for recall request")
	}
	if got := Assess("My anniversary is June 12"); got.Question {
		t.Errorf("question flag set for a plain statement")
	}
}

func TestAssessWorthy(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"identity", "My name is Oleksandr and I live in Kyiv"},
		{"relationship name", "My sister's name is Kateryna"},
		{"birthday", "My mom's birthday is March 23"},
		{"preference", "I love hiking in the Carpathians every summer"},
		{"goal", "I'm learning Portuguese because my goal is to move to Lisbon"},
		{"health", "I'm allergic to penicillin and my doctor knows it"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Assess(tt.input)
			if !got.Worthy {
				t.Fatalf("Assess(%q) = %+v, want worthy", tt.input, got)
			}
			if got.Score < moderateThreshold {
				t.Errorf("Assess(%q).Score = %v, want >= %v", tt.input, got.Score, moderateThreshold)
			}
		})
	}
}

func TestAssessHighValue(t *testing.T) {
	got := Assess("My name is Paul, I live in Berlin and my birthday is August 20")
	if !got.Worthy {
		t.Fatalf("Assess() = %+v, want worthy", got)
	}
	if got.Score < highThreshold {
		t.Errorf("Score = %v, want >= %v", got.Score, highThreshold)
	}
	if got.Reason != "high-value personal information" {
		t.Errorf("Reason = %q", got.Reason)
	}
}

func TestAssessLowValue(t *testing.T) {
	got := Assess("The weather looked somewhat grey over the harbor this morning")
	if got.Worthy {
		t.Errorf("Assess() = %+v, want not worthy", got)
	}
	if got.Reason != "low-value information" {
		t.Errorf("Reason = %q, want low-value information", got.Reason)
	}
}

func TestAssessScoreClamped(t *testing.T) {
	got := Assess("My name is Ana, I am 30, I was born May 5, I live in Porto, I love surfing, my goal is to teach, my sister's name is Ines, my doctor says I have asthma")
	if got.Score > 1.0 {
		t.Errorf("Score = %v, want <= 1.0", got.Score)
	}
}
