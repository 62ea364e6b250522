package protocol

import (
	"encoding/base64"
	"testing"
	"time"
)

func TestNewMessage(t *testing.T) {
	tests := []struct {
		name    string
		msgType MessageType
		data    any
		wantErr bool
	}{
		{
			name:    "transcript message",
			msgType: TypeTranscript,
			data:    TranscriptData{Text: "mirror mirror", Final: true},
		},
		{
			name:    "aura message",
			msgType: TypeAura,
			data:    AuraData{Primary: "#FFD700", Intensity: 0.8},
		},
		{
			name:    "nil data",
			msgType: TypePing,
			data:    nil,
		},
		{
			name:    "unmarshalable data",
			msgType: TypeStatus,
			data:    make(chan int),
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := NewMessage(tt.msgType, tt.data)
			if (err != nil) != tt.wantErr {
				t.Errorf("NewMessage() error = %v, wantErr %v", err, tt.wantErr)
				return
			}
			if tt.wantErr {
				return
			}
			if msg.Type != tt.msgType {
				t.Errorf("NewMessage() type = %v, want %v", msg.Type, tt.msgType)
			}
			if msg.Timestamp == 0 {
				t.Error("NewMessage() timestamp should be set")
			}
		})
	}
}

func TestParseMessage(t *testing.T) {
	msg, err := ParseMessage([]byte(`{"type":"transcript","data":{"text":"hello","final":false}}`))
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	data, err := msg.GetTranscriptData()
	if err != nil {
		t.Fatalf("GetTranscriptData() error = %v", err)
	}
	if data.Text != "hello" || data.Final {
		t.Errorf("GetTranscriptData() = %+v", data)
	}

	if _, err := ParseMessage([]byte(`{"data":{}}`)); err == nil {
		t.Error("ParseMessage() should reject a message without type")
	}
	if _, err := ParseMessage([]byte(`not json`)); err == nil {
		t.Error("ParseMessage() should reject invalid JSON")
	}
}

func TestEmotionRoundTrip(t *testing.T) {
	original := EmotionData{
		Emotions: []ScoreData{
			{Name: "joy", Score: 0.7},
			{Name: "calmness", Score: 0.3},
		},
		Dominant:   "joy",
		Confidence: 0.95,
		Timestamp:  time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC).UnixMilli(),
	}

	msg, err := NewEmotionMessage(original)
	if err != nil {
		t.Fatalf("NewEmotionMessage() error = %v", err)
	}

	bytes, err := msg.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}

	parsed, err := ParseMessage(bytes)
	if err != nil {
		t.Fatalf("ParseMessage() error = %v", err)
	}
	if parsed.Type != TypeEmotion {
		t.Errorf("Type = %v, want %v", parsed.Type, TypeEmotion)
	}

	data, err := parsed.GetEmotionData()
	if err != nil {
		t.Fatalf("GetEmotionData() error = %v", err)
	}
	if len(data.Emotions) != 2 || data.Emotions[0].Name != "joy" {
		t.Errorf("Emotions = %+v, want joy first", data.Emotions)
	}
	if data.Dominant != "joy" {
		t.Errorf("Dominant = %v, want joy", data.Dominant)
	}
	if data.Timestamp != original.Timestamp {
		t.Errorf("Timestamp = %v, want %v", data.Timestamp, original.Timestamp)
	}
}

func TestMicMessage(t *testing.T) {
	pcm := []byte{0x00, 0x01, 0xFF, 0x7F}

	msg, err := NewMicMessage(pcm, 16000)
	if err != nil {
		t.Fatalf("NewMicMessage() error = %v", err)
	}
	if msg.Type != TypeMic {
		t.Errorf("Type = %v, want %v", msg.Type, TypeMic)
	}

	mic, err := msg.GetMicData()
	if err != nil {
		t.Fatalf("GetMicData() error = %v", err)
	}
	if mic.Format != FormatPCM16 {
		t.Errorf("Format = %v, want %v", mic.Format, FormatPCM16)
	}
	if mic.SampleRate != 16000 {
		t.Errorf("SampleRate = %v, want 16000", mic.SampleRate)
	}

	decoded, err := mic.DecodeMicData()
	if err != nil {
		t.Fatalf("DecodeMicData() error = %v", err)
	}
	if string(decoded) != string(pcm) {
		t.Errorf("Decoded = %v, want %v", decoded, pcm)
	}

	mic.Data = "%%%"
	if _, err := mic.DecodeMicData(); err == nil {
		t.Error("DecodeMicData() should reject invalid base64")
	}
}

func TestSpeechErrorMessage(t *testing.T) {
	msg, err := NewSpeechErrorMessage(SpeechErrorCodeNoSpeech, "")
	if err != nil {
		t.Fatalf("NewSpeechErrorMessage() error = %v", err)
	}
	data, err := msg.GetSpeechErrorData()
	if err != nil {
		t.Fatalf("GetSpeechErrorData() error = %v", err)
	}
	if data.Code != SpeechErrorCodeNoSpeech {
		t.Errorf("Code = %v, want %v", data.Code, SpeechErrorCodeNoSpeech)
	}
}

func TestStatusMessageOmitsEmptyFields(t *testing.T) {
	msg, err := NewStatusMessage(StatusData{State: "disconnected"})
	if err != nil {
		t.Fatalf("NewStatusMessage() error = %v", err)
	}
	want := `{"state":"disconnected","reconnect_attempt":0}`
	if string(msg.Data) != want {
		t.Errorf("Data = %s, want %s", msg.Data, want)
	}
}

func TestSpeakMessage(t *testing.T) {
	audio := []byte("RIFF....WAVE")

	msg, err := NewSpeakMessage("out-1", 3, audio, "wav")
	if err != nil {
		t.Fatalf("NewSpeakMessage() error = %v", err)
	}

	speak, err := msg.GetSpeakData()
	if err != nil {
		t.Fatalf("GetSpeakData() error = %v", err)
	}
	if speak.ID != "out-1" || speak.Index != 3 {
		t.Errorf("SpeakData = %+v", speak)
	}
	if speak.Data != base64.StdEncoding.EncodeToString(audio) {
		t.Errorf("Data = %v", speak.Data)
	}

	decoded, err := speak.DecodeSpeakData()
	if err != nil {
		t.Fatalf("DecodeSpeakData() error = %v", err)
	}
	if string(decoded) != string(audio) {
		t.Errorf("Decoded = %q, want %q", decoded, audio)
	}
}

func TestPingPong(t *testing.T) {
	ping, err := NewPingMessage("p1")
	if err != nil {
		t.Fatalf("NewPingMessage() error = %v", err)
	}
	pingData, err := ping.GetPingData()
	if err != nil {
		t.Fatalf("GetPingData() error = %v", err)
	}
	if pingData.ID != "p1" || pingData.Timestamp == 0 {
		t.Errorf("PingData = %+v", pingData)
	}

	pong, err := NewPongMessage("p1", 1000, 1042)
	if err != nil {
		t.Fatalf("NewPongMessage() error = %v", err)
	}
	var pongData PongData
	if err := pong.ParseData(&pongData); err != nil {
		t.Fatalf("ParseData() error = %v", err)
	}
	if pongData.LatencyMs != 42 {
		t.Errorf("LatencyMs = %v, want 42", pongData.LatencyMs)
	}
}
