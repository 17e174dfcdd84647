package siri

import "github.com/theoremus-urban-solutions/transit-types/siri"

// EstimatedTimetableDelivery is one ET delivery from an upstream
// producer.
type EstimatedTimetableDelivery struct {
	ResponseTimestamp            string                         `json:"ResponseTimestamp"`
	EstimatedJourneyVersionFrame []EstimatedJourneyVersionFrame `json:"EstimatedJourneyVersionFrame"`
}

// EstimatedJourneyVersionFrame contains a frame of estimated journeys.
type EstimatedJourneyVersionFrame struct {
	RecordedAtTime          string                    `json:"RecordedAtTime"`
	EstimatedVehicleJourney []EstimatedVehicleJourney `json:"EstimatedVehicleJourney"`
}

// EstimatedVehicleJourney is a single journey with recorded and
// estimated call times. A journey is identified by its framed ref, its
// dated ref, or its journey code; the updater tries them in that order.
type EstimatedVehicleJourney struct {
	RecordedAtTime              string                        `json:"RecordedAtTime"`
	LineRef                     string                        `json:"LineRef"`
	DirectionRef                string                        `json:"DirectionRef,omitempty"`
	FramedVehicleJourneyRef     *siri.FramedVehicleJourneyRef `json:"FramedVehicleJourneyRef,omitempty"`
	DatedVehicleJourneyRef      string                        `json:"DatedVehicleJourneyRef,omitempty"`
	EstimatedVehicleJourneyCode string                        `json:"EstimatedVehicleJourneyCode,omitempty"`
	VehicleRef                  string                        `json:"VehicleRef,omitempty"`
	DataSource                  string                        `json:"DataSource,omitempty"`
	OperatorRef                 string                        `json:"OperatorRef,omitempty"`
	Monitored                   bool                          `json:"Monitored"`
	Cancellation                bool                          `json:"Cancellation,omitempty"`
	RecordedCalls               []RecordedCall                `json:"RecordedCalls,omitempty"`
	EstimatedCalls              []EstimatedCall               `json:"EstimatedCalls,omitempty"`
	IsCompleteStopSequence      bool                          `json:"IsCompleteStopSequence"`
}

// RecordedCall is a stop the vehicle has already visited.
type RecordedCall struct {
	StopPointRef        string `json:"StopPointRef"`
	Order               int    `json:"Order"`
	Cancellation        bool   `json:"Cancellation,omitempty"`
	AimedArrivalTime    string `json:"AimedArrivalTime,omitempty"`
	ActualArrivalTime   string `json:"ActualArrivalTime,omitempty"`
	AimedDepartureTime  string `json:"AimedDepartureTime,omitempty"`
	ActualDepartureTime string `json:"ActualDepartureTime,omitempty"`
}

// EstimatedCall is a stop the vehicle has not yet visited.
type EstimatedCall struct {
	StopPointRef          string `json:"StopPointRef"`
	Order                 int    `json:"Order"`
	Cancellation          bool   `json:"Cancellation,omitempty"`
	AimedArrivalTime      string `json:"AimedArrivalTime,omitempty"`
	ExpectedArrivalTime   string `json:"ExpectedArrivalTime,omitempty"`
	AimedDepartureTime    string `json:"AimedDepartureTime,omitempty"`
	ExpectedDepartureTime string `json:"ExpectedDepartureTime,omitempty"`
}
