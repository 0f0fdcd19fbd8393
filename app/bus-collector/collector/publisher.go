package collector

import (
	"encoding/json"
	"log"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/nats-io/nats.go"

	"github.com/bustrust/bustrust/business/data/busobs"
	"github.com/bustrust/bustrust/business/data/bustime"
)

// observationPublisher takes rows polled by the collector and sends them to
// their optional destinations (such as database and nats). Failures here are
// logged and dropped; the csv chunk file remains the primary record.
type observationPublisher struct {
	log              *log.Logger
	db               *sqlx.DB
	natsConnection   *nats.Conn
	subject          string
	serviceDays      *serviceDayCalendar
	recordToDatabase bool
	publishOverNats  bool
}

// makeObservationPublisher creates observationPublisher
func makeObservationPublisher(log *log.Logger,
	db *sqlx.DB,
	natsConnection *nats.Conn,
	subject string,
	recordToDatabase bool,
	publishOverNats bool) *observationPublisher {
	return &observationPublisher{
		log:              log,
		db:               db,
		natsConnection:   natsConnection,
		subject:          subject,
		serviceDays:      makeServiceDayCalendar(),
		recordToDatabase: recordToDatabase,
		publishOverNats:  publishOverNats,
	}
}

// publish sends the vehicles from one successful fetch over NATS and records
// them to the database according to publishOverNats and recordToDatabase
func (p *observationPublisher) publish(vehicles []bustime.Vehicle, pulledAt time.Time, routeGroup string) {
	if len(vehicles) == 0 || (!p.recordToDatabase && !p.publishOverNats) {
		return
	}
	serviceDay := p.serviceDays.serviceDay(pulledAt)
	observations := make([]busobs.Observation, 0, len(vehicles))
	for i := range vehicles {
		observations = append(observations, busobs.MakeObservation(&vehicles[i], pulledAt, routeGroup, serviceDay))
	}
	if p.publishOverNats {
		p.sendOverNats(observations)
	}
	if p.recordToDatabase {
		p.record(observations)
	}
}

func (p *observationPublisher) sendOverNats(observations []busobs.Observation) {
	jsonData, err := json.Marshal(observations)
	if err != nil {
		p.log.Printf("failed to marshal observations in "+
			"observationPublisher.sendOverNats, error:%v", err)
		return
	}
	err = p.natsConnection.Publish(p.subject, jsonData)
	if err != nil {
		p.log.Printf("failed to send observations in "+
			"observationPublisher.sendOverNats, error:%v", err)
	}
}

func (p *observationPublisher) record(observations []busobs.Observation) {
	for i := range observations {
		err := busobs.RecordObservation(&observations[i], p.db)
		if err != nil {
			p.log.Printf("Error saving observation %+v. error: %v", observations[i], err)
		}
	}
}
