package processing

import (
	"fmt"
	"sync"
)

// The processor writes the newest reading here and the sampler reads it on
// its own clock, so a tick never waits for the board. A stale value is
// returned until the next packet lands.

type DataSampleStore struct {
	Grams           float64
	BoardTimestamp  int
	Status          uint32
	fault           error
	rawReadingMutex sync.Mutex
}

func NewDataSampleStore() *DataSampleStore {
	return &DataSampleStore{}
}

func (d *DataSampleStore) UpdateSampleStore(grams float64, boardTimestamp int, status uint32) {
	d.rawReadingMutex.Lock()
	defer d.rawReadingMutex.Unlock()

	d.Grams = grams
	d.BoardTimestamp = boardTimestamp
	d.Status = status
}

func (d *DataSampleStore) GetReadingFromSampleStore() (float64, int) {
	d.rawReadingMutex.Lock()
	defer d.rawReadingMutex.Unlock()

	return d.Grams, d.BoardTimestamp
}

// MarkFault latches a link level failure. Faults are never cleared.
func (d *DataSampleStore) MarkFault(err error) {
	d.rawReadingMutex.Lock()
	defer d.rawReadingMutex.Unlock()

	if d.fault == nil {
		d.fault = err
	}
}

// Read implements swing.WeightSensor.
func (d *DataSampleStore) Read() (float64, error) {
	d.rawReadingMutex.Lock()
	defer d.rawReadingMutex.Unlock()

	if d.fault != nil {
		return 0, d.fault
	}
	if d.Status&StatusTareTimeout != 0 {
		return 0, fmt.Errorf("tare timeout (status %#x)", d.Status)
	}
	if d.Status&StatusSignalTimeout != 0 {
		return 0, fmt.Errorf("signal timeout (status %#x)", d.Status)
	}

	return d.Grams, nil
}
